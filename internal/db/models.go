package db

// Run represents a row in the runs table
type Run struct {
	ID          string `json:"id"`
	CreatedAt   int64  `json:"created_at"` // Unix millis
	DataDir     string `json:"data_dir"`
	Persons     int    `json:"persons"`
	Flights     int    `json:"flights"`
	Documents   int    `json:"documents"`
	Emails      int    `json:"emails"`
	Links       int    `json:"links"`
	SkippedRows int    `json:"skipped_rows"`
}

// Person represents a row in the persons table
type Person struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Nationality string   `json:"nationality"`
	Category    string   `json:"category"`
	EntityType  string   `json:"entity_type"`
	Role        string   `json:"role"`
	Bio         string   `json:"bio"`
	Slug        string   `json:"slug"`
	InBlackBook bool     `json:"in_black_book"`
	InNetwork   bool     `json:"in_network"`
	Flights     int      `json:"flights"`
	Documents   int      `json:"documents"`
	Connections int      `json:"connections"`
	Aliases     []string `json:"aliases,omitempty"` // aliases table
}

// Image represents a row in the images table
type Image struct {
	PersonID string `json:"person_id"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

// Link represents a row in the links table. SourceID < TargetID.
type Link struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	Weight   int      `json:"weight"`
	Types    []string `json:"types"`   // JSON string column
	Sources  []string `json:"sources"` // JSON string column
}

// Snapshot is everything one pipeline run persists
type Snapshot struct {
	Run     Run
	Persons []Person
	Images  []Image
	Links   []Link
}
