package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericfisherdev/reviewdesk/internal/domain/model"
	"github.com/ericfisherdev/reviewdesk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SearchIndex = (*SearchIndex)(nil)

const searchDocumentColumns = `d.id, d.kind, d.object_id, d.display_id, d.title, d.body, d.username, d.full_name, d.url,
	d.last_updated, (SELECT GROUP_CONCAT(local_site_id) FROM search_document_sites WHERE document_id = d.id)`

// SearchIndex is the SQLite implementation of the SearchIndex port interface.
// Documents live in search_documents; an FTS5 table kept in sync by triggers
// provides the full-text match.
type SearchIndex struct {
	db *DB
}

// NewSearchIndex creates a new SearchIndex backed by the given DB.
func NewSearchIndex(db *DB) *SearchIndex {
	return &SearchIndex{db: db}
}

// Index inserts or replaces the document and the local sites it is visible on.
func (s *SearchIndex) Index(ctx context.Context, doc model.SearchDocument) error {
	const upsert = `INSERT INTO search_documents
			(kind, object_id, display_id, title, body, username, full_name, url, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(kind, object_id) DO UPDATE SET
			display_id = excluded.display_id,
			title = excluded.title,
			body = excluded.body,
			username = excluded.username,
			full_name = excluded.full_name,
			url = excluded.url,
			last_updated = excluded.last_updated`
	const selectID = `SELECT id FROM search_documents WHERE kind = ? AND object_id = ?`
	const clearSites = `DELETE FROM search_document_sites WHERE document_id = ?`
	const insertSite = `INSERT OR IGNORE INTO search_document_sites (document_id, local_site_id) VALUES (?, ?)`

	tx, err := s.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, upsert,
		string(doc.Kind), doc.ObjectID, doc.DisplayID, doc.Title, doc.Body,
		doc.Username, doc.FullName, doc.URL, formatTime(doc.LastUpdated),
	)
	if err != nil {
		return fmt.Errorf("index %s %d: %w", doc.Kind, doc.ObjectID, err)
	}

	var docID int64
	if err := tx.QueryRowContext(ctx, selectID, string(doc.Kind), doc.ObjectID).Scan(&docID); err != nil {
		return fmt.Errorf("get document id for %s %d: %w", doc.Kind, doc.ObjectID, err)
	}

	if _, err := tx.ExecContext(ctx, clearSites, docID); err != nil {
		return fmt.Errorf("clear document sites: %w", err)
	}

	siteIDs := doc.LocalSiteIDs
	if len(siteIDs) == 0 {
		siteIDs = []int64{model.NoLocalSiteID}
	}
	for _, siteID := range siteIDs {
		if _, err := tx.ExecContext(ctx, insertSite, docID, siteID); err != nil {
			return fmt.Errorf("insert document site %d: %w", siteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Remove deletes a document. Removing an unindexed document is not an error.
func (s *SearchIndex) Remove(ctx context.Context, kind model.SearchKind, objectID int64) error {
	const query = `DELETE FROM search_documents WHERE kind = ? AND object_id = ?`

	if _, err := s.db.Writer.ExecContext(ctx, query, string(kind), objectID); err != nil {
		return fmt.Errorf("remove %s %d from index: %w", kind, objectID, err)
	}

	return nil
}

// Clear removes every document from the index.
func (s *SearchIndex) Clear(ctx context.Context) error {
	if _, err := s.db.Writer.ExecContext(ctx, `DELETE FROM search_documents`); err != nil {
		return fmt.Errorf("clear search index: %w", err)
	}
	return nil
}

// Search returns one page of documents visible on the query's local site,
// newest first, along with the total match count.
func (s *SearchIndex) Search(ctx context.Context, q model.SearchQuery) (model.SearchResults, error) {
	from := ` FROM search_documents d
		JOIN search_document_sites ds ON ds.document_id = d.id AND ds.local_site_id = ?`
	args := []any{q.LocalSiteID}
	var where []string

	if match := ftsQuery(q.Text); match != "" {
		from += ` JOIN search_fts ON search_fts.rowid = d.id`
		where = append(where, `search_fts MATCH ?`)
		args = append(args, match)
	}

	if q.DisplayID != 0 {
		where = append(where, `d.display_id = ?`)
		args = append(args, q.DisplayID)
	}

	if len(q.Kinds) > 0 {
		where = append(where, `d.kind IN (`+placeholders(len(q.Kinds))+`)`)
		for _, k := range q.Kinds {
			args = append(args, string(k))
		}
	}

	if len(where) > 0 {
		from += ` WHERE ` + strings.Join(where, ` AND `)
	}

	var results model.SearchResults
	if err := s.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&results.Total); err != nil {
		return model.SearchResults{}, fmt.Errorf("count search results: %w", err)
	}
	if results.Total == 0 {
		return results, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + searchDocumentColumns + from + ` ORDER BY d.last_updated DESC, d.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, max(q.Offset, 0))

	rows, err := s.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return model.SearchResults{}, fmt.Errorf("search: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanSearchDocument(rows)
		if err != nil {
			return model.SearchResults{}, fmt.Errorf("scan search document: %w", err)
		}
		results.Documents = append(results.Documents, *doc)
	}

	if err := rows.Err(); err != nil {
		return model.SearchResults{}, fmt.Errorf("iterate search documents: %w", err)
	}

	return results, nil
}

// ftsQuery turns free text into an FTS5 expression: every whitespace
// separated term quoted and matched as a prefix, all terms required.
func ftsQuery(text string) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}

	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"*`)
	}
	return strings.Join(quoted, " ")
}

func scanSearchDocument(sc scanner) (*model.SearchDocument, error) {
	var (
		doc         model.SearchDocument
		docID       int64
		kind        string
		lastUpdated string
		sites       *string
	)

	err := sc.Scan(&docID, &kind, &doc.ObjectID, &doc.DisplayID, &doc.Title, &doc.Body,
		&doc.Username, &doc.FullName, &doc.URL, &lastUpdated, &sites)
	if err != nil {
		return nil, err
	}
	doc.Kind = model.SearchKind(kind)

	doc.LastUpdated, err = parseTime(lastUpdated)
	if err != nil {
		return nil, fmt.Errorf("parse last_updated: %w", err)
	}

	if sites != nil {
		for _, part := range strings.Split(*sites, ",") {
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse local site id %q: %w", part, err)
			}
			doc.LocalSiteIDs = append(doc.LocalSiteIDs, id)
		}
	}

	return &doc, nil
}
