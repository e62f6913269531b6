// Package query shapes an HTTP query string into a MongoDB filter plus find
// options: filtering, prefix search, sorting, field projection and
// pagination, applied in that order.
package query

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the fixed number of documents per page.
const PageSize = 12

// reserved keys drive the builder stages and never reach the filter.
var reserved = map[string]bool{
	"page":   true,
	"sort":   true,
	"limit":  true,
	"fields": true,
	"search": true,
}

// operators is the closed set of permitted comparison operators. Anything
// else in bracket position is discarded, never forwarded to the store.
var operators = map[string]string{
	"lt":  "$lt",
	"lte": "$lte",
	"gt":  "$gt",
	"gte": "$gte",
}

var bracketKey = regexp.MustCompile(`^([A-Za-z][\w]*)\[([A-Za-z]+)\]$`)

// Builder composes a store query from a flat query-string representation.
// Each stage returns the builder so stages chain in one expression.
type Builder struct {
	values  url.Values
	allowed map[string]bool
	filter  bson.M
	opts    *options.FindOptions
}

// New creates a builder over the raw query values. Only field names in
// allowed may appear in the composed filter; client-supplied keys outside
// the allow-list are dropped.
func New(values url.Values, allowed []string) *Builder {
	m := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		m[f] = true
	}
	return &Builder{
		values:  values,
		allowed: m,
		filter:  bson.M{},
		opts:    options.Find(),
	}
}

// Filter applies equality and comparison conditions from the remaining
// (non-reserved) parameters. `field[op]=v` keys become `{field: {$op: v}}`.
func (b *Builder) Filter() *Builder {
	for key, vals := range b.values {
		if reserved[key] || len(vals) == 0 {
			continue
		}

		field, op := key, ""
		if m := bracketKey.FindStringSubmatch(key); m != nil {
			field = m[1]
			var ok bool
			if op, ok = operators[m[2]]; !ok {
				continue
			}
		}
		if !b.allowed[field] {
			continue
		}

		value := coerce(vals[0])
		if op == "" {
			b.filter[field] = value
			continue
		}
		cond, ok := b.filter[field].(bson.M)
		if !ok {
			cond = bson.M{}
			b.filter[field] = cond
		}
		cond[op] = value
	}
	return b
}

// Search adds a case-insensitive prefix match on the name field.
func (b *Builder) Search() *Builder {
	if term := b.values.Get("search"); term != "" {
		b.filter["name"] = bson.M{
			"$regex":   "^" + regexp.QuoteMeta(term),
			"$options": "i",
		}
	}
	return b
}

// Sort applies a comma-separated multi-field sort; a leading '-' means
// descending. Without a sort parameter results come newest first.
func (b *Builder) Sort() *Builder {
	param := b.values.Get("sort")
	if param == "" {
		b.opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
		return b
	}

	var sort bson.D
	for _, field := range strings.Split(param, ",") {
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = field[1:]
		}
		sort = append(sort, bson.E{Key: field, Value: dir})
	}
	if len(sort) > 0 {
		b.opts.SetSort(sort)
	}
	return b
}

// Fields projects exactly the requested fields, or hides the createdAt
// bookkeeping field when none are requested.
func (b *Builder) Fields() *Builder {
	param := b.values.Get("fields")
	if param == "" {
		b.opts.SetProjection(bson.M{"createdAt": 0})
		return b
	}

	projection := bson.M{}
	for _, field := range strings.Split(param, ",") {
		if field != "" {
			projection[field] = 1
		}
	}
	b.opts.SetProjection(projection)
	return b
}

// Paginate applies skip and limit from the 1-based page parameter.
func (b *Builder) Paginate() *Builder {
	page := 1
	if n, err := strconv.Atoi(b.values.Get("page")); err == nil && n > 0 {
		page = n
	}
	b.opts.SetSkip(int64((page - 1) * PageSize))
	b.opts.SetLimit(PageSize)
	return b
}

// Query returns the composed, not-yet-executed filter and find options. The
// filter alone also serves the matching count query.
func (b *Builder) Query() (bson.M, *options.FindOptions) {
	return b.filter, b.opts
}

// coerce converts a query value into the type it compares as in the store:
// integer, float, date (RFC 3339 or YYYY-MM-DD), falling back to string.
func coerce(v string) interface{} {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t
	}
	return v
}
