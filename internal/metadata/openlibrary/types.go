package openlibrary

// Edition is the part of an Open Library edition record the catalog uses.
type Edition struct {
	Title      string
	AuthorKeys []string
	// Raw is the edition body as served.
	Raw []byte
}

type rawEdition struct {
	Title   string `json:"title"`
	Authors []struct {
		Key string `json:"key"`
	} `json:"authors"`
}

type rawAuthor struct {
	Name         string `json:"name"`
	PersonalName string `json:"personal_name"`
}
