package model

// Model defines how an API type converts to and from its service layer
// representation.
type Model interface {
	// Import transforms a service layer model into an API model.
	Import(interface{}) error
	// Export transforms an API model into its service layer
	// representation.
	Export() (interface{}, error)
}
