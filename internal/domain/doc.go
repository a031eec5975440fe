// Package domain contains core domain types for the dialogue service.
package domain
