package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps book documents. Text fields use the standard
// analyzer (unicode tokens, lowercased, no stemming); owner_id and isbn are
// exact keywords.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	titleField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleField)

	authorsField := bleve.NewTextFieldMapping()
	authorsField.Analyzer = standard.Name
	authorsField.Store = true
	docMapping.AddFieldMappingsAt("authors", authorsField)

	for _, name := range []string{"tags", "notes", "location"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		docMapping.AddFieldMappingsAt(name, f)
	}

	for _, name := range []string{"id", "owner_id", "isbn"} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(name, f)
	}

	updatedAt := bleve.NewNumericFieldMapping()
	updatedAt.Store = true
	docMapping.AddFieldMappingsAt("updated_at", updatedAt)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
