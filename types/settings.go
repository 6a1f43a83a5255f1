package types

// Settings represents the user's persisted settings
type Settings struct {
	LibraryDirs []string `json:"libraryDirs"`
}
