package mcp

import (
	"errors"
	"fmt"

	"vienna-cli/internal/db"
	"vienna-cli/internal/util"
)

// Tool arguments arrive as decoded JSON, so numbers are float64 and arrays
// are []interface{}.

func stringArg(arguments map[string]interface{}, name string) string {
	s, _ := arguments[name].(string)
	return s
}

func boolArg(arguments map[string]interface{}, name string, def bool) bool {
	if b, ok := arguments[name].(bool); ok {
		return b
	}
	return def
}

func intArg(arguments map[string]interface{}, name string, def int) int {
	switch n := arguments[name].(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

func stringSliceArg(arguments map[string]interface{}, name string) []string {
	switch v := arguments[name].(type) {
	case []string:
		return util.DedupeStrings(v)
	case []interface{}:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return util.DedupeStrings(out)
	case string:
		return util.DedupeStrings([]string{v})
	}
	return nil
}

// articleFilterFromArgs builds a store filter from list_articles arguments.
func (s *Server) articleFilterFromArgs(arguments map[string]interface{}) (db.ArticleFilter, error) {
	filter := db.ArticleFilter{
		UnreadOnly:     boolArg(arguments, "unread_only", false),
		FlaggedOnly:    boolArg(arguments, "flagged_only", false),
		IncludeDeleted: boolArg(arguments, "include_deleted", false),
		Limit:          intArg(arguments, "limit", 20),
	}

	if name := stringArg(arguments, "folder"); name != "" {
		folder, err := s.db.GetFolderByName(name)
		if errors.Is(err, db.ErrNotFound) {
			return filter, fmt.Errorf("no folder named %q", name)
		}
		if err != nil {
			return filter, err
		}
		filter.FolderID = &folder.ID
	}

	since, until, err := util.FormatDateRange(stringArg(arguments, "since"), stringArg(arguments, "until"))
	if err != nil {
		return filter, err
	}
	filter.Since = since
	filter.Until = until

	return filter, nil
}
