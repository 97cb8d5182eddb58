// Package test provides infrastructure and utilities for integration testing of ec2api.
//
// The test package runs the real fiber application behind an httptest server and talks to it
// through the real API client, while the EC2 API itself is replaced by mocks.MockEC2Client.
//
// Example Usage:
//
//	func TestExample(t *testing.T) {
//	    suite := test.NewSuite(t)
//	    defer suite.Cleanup()
//
//	    // Use suite.APIClient to make requests
//	    // Use suite.MockEC2 to seed state or inject provider failures
//	}
package test
