package entity

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qualitrack/qc-api/internal/model"
)

// parseBool coerces the wire representation of the active flag. Anything
// other than true/1/false/0 is rejected.
func parseBool(raw string) (bool, error) {
	switch raw {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean value %q", raw)
}

func parseInt(c *gin.Context, key string, dst *int) error {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	*dst = v
	return nil
}

func parseDate(c *gin.Context, key string, dst **time.Time) error {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	*dst = &t
	return nil
}

// parseQueryOptions converts string query parameters into typed options.
// Defaulting and clamping stay in the business layer; this only converts.
func parseQueryOptions(c *gin.Context) (model.QueryOptions, error) {
	var opts model.QueryOptions

	if err := parseInt(c, "page", &opts.Page); err != nil {
		return opts, err
	}
	if err := parseInt(c, "limit", &opts.Limit); err != nil {
		return opts, err
	}

	opts.SortBy = c.Query("sortBy")
	// Anything other than an exact DESC sorts ascending.
	if c.Query("sortOrder") == model.SortDesc {
		opts.SortOrder = model.SortDesc
	} else {
		opts.SortOrder = model.SortAsc
	}

	opts.Search = c.Query("search")

	if raw := c.Query("is_active"); raw != "" {
		active, err := parseBool(raw)
		if err != nil {
			return opts, err
		}
		opts.IsActive = &active
	}

	if err := parseDate(c, "createdAfter", &opts.CreatedAfter); err != nil {
		return opts, err
	}
	if err := parseDate(c, "createdBefore", &opts.CreatedBefore); err != nil {
		return opts, err
	}
	if err := parseDate(c, "updatedAfter", &opts.UpdatedAfter); err != nil {
		return opts, err
	}
	if err := parseDate(c, "updatedBefore", &opts.UpdatedBefore); err != nil {
		return opts, err
	}

	return opts, nil
}
