package model

import "strings"

// SelectAll is the query text matching every document of a container.
const SelectAll = "SELECT * FROM c"

// QueryParameter binds a named query parameter such as "@id".
type QueryParameter struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// Query is query text plus its named parameters.
type Query struct {
	Text       string           `json:"query"`
	Parameters []QueryParameter `json:"parameters,omitempty"`
}

// NewQuery builds a query from text and parameters.
func NewQuery(text string, params ...QueryParameter) Query {
	return Query{Text: text, Parameters: params}
}

// Param builds a QueryParameter, adding the leading "@" if missing.
func Param(name string, value interface{}) QueryParameter {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	return QueryParameter{Name: name, Value: value}
}

// ParameterMap returns parameters keyed by name without the leading "@".
func (q Query) ParameterMap() map[string]interface{} {
	params := make(map[string]interface{}, len(q.Parameters))
	for _, p := range q.Parameters {
		params[strings.TrimPrefix(p.Name, "@")] = p.Value
	}
	return params
}
