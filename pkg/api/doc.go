// Package api provides a client for the story API.
//
// This package includes:
//   - A client built on an authenticated cookie-session HTTP client
//   - Type-safe models for the stories endpoint
//   - Helper functions for constructing endpoint URLs
//   - Built-in error types for better error handling
//
// Example usage:
//
//	client := api.NewClient(session.Client(), baseURL, childID, log)
//
//	page, err := client.FetchStories("")
//	if err != nil {
//	    if apiErr, ok := err.(*api.Error); ok {
//	        switch apiErr.Type {
//	        case api.ErrorTypeAuth:
//	            // Session expired, re-authenticate
//	        case api.ErrorTypeRateLimit:
//	            // Back off
//	        }
//	    }
//	}
package api
