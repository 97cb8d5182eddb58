// Package mocks provides an in-memory EC2 account and a mockable client factory used by the
// service, handler and integration tests
package mocks
