package metadata

// JoinOption is a related entity the user may ask the backend to eager-load.
type JoinOption struct {
	Key     string
	Label   string
	Nested  bool
	Default bool
	Parent  string
}
