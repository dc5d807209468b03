package repository

import (
	"strconv"
	"strings"
)

// Column lists shared by the queries of each table.

// CompanyColumns defines the columns for the companies table.
var CompanyColumns = TableColumns{
	TableName: "companies",
	Columns:   []string{"id", "name", "email", "business_pitch", "created_at"},
}

// QuestionColumns defines the columns for the questions table.
var QuestionColumns = TableColumns{
	TableName: "questions",
	Columns:   []string{"company_id", "position", "question"},
}

// CustomerColumns defines the columns for the customers table.
var CustomerColumns = TableColumns{
	TableName: "customers",
	Columns:   []string{"id", "name", "email", "company_id", "created_at"},
}

// MessageColumns defines the columns for the messages table.
var MessageColumns = TableColumns{
	TableName: "messages",
	Columns:   []string{"customer_id", `"order"`, "speaker", "message", "question_position", "created_at"},
}

// TableColumns provides helper methods for generating SQL fragments.
type TableColumns struct {
	TableName string
	Columns   []string
}

// Select returns a comma-separated list of columns for SELECT queries.
func (tc TableColumns) Select() string {
	return strings.Join(tc.Columns, ", ")
}

// SelectPrefixed returns columns prefixed with the table name for joins.
func (tc TableColumns) SelectPrefixed() string {
	prefixed := make([]string, len(tc.Columns))
	for i, col := range tc.Columns {
		prefixed[i] = tc.TableName + "." + col
	}
	return strings.Join(prefixed, ", ")
}

// Placeholders returns "$1, $2, ..." for the columns.
func (tc TableColumns) Placeholders() string {
	placeholders := make([]string, len(tc.Columns))
	for i := range tc.Columns {
		placeholders[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(placeholders, ", ")
}
