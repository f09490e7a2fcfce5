// Package mock provides test doubles for catalog interfaces.
package mock
