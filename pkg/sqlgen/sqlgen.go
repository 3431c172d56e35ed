// Package sqlgen detects SQL Server object types from DDL files and
// generates ALTER/sp_rename scripts that carry a keyword rename through the
// database without losing data or permissions.
package sqlgen

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ObjectType classifies a SQL DDL file.
type ObjectType string

const (
	Table           ObjectType = "TABLE"
	TableType       ObjectType = "TABLE_TYPE"
	View            ObjectType = "VIEW"
	StoredProcedure ObjectType = "STORED_PROCEDURE"
	Function        ObjectType = "FUNCTION"
	Unknown         ObjectType = "UNKNOWN"
)

// Ordered by specificity: CREATE TYPE ... AS TABLE must be recognized before
// plain CREATE TABLE.
var typePatterns = []struct {
	re  *regexp.Regexp
	typ ObjectType
}{
	{regexp.MustCompile(`(?im)CREATE\s+TYPE\s+`), TableType},
	{regexp.MustCompile(`(?im)(?:CREATE|ALTER)\s+VIEW\s+`), View},
	{regexp.MustCompile(`(?im)(?:CREATE|ALTER)\s+(?:PROCEDURE|PROC)\s+`), StoredProcedure},
	{regexp.MustCompile(`(?im)(?:CREATE|ALTER)\s+FUNCTION\s+`), Function},
	{regexp.MustCompile(`(?im)CREATE\s+TABLE\s+`), Table},
}

var namePatterns = map[ObjectType]*regexp.Regexp{
	Table:           regexp.MustCompile(`(?i)CREATE\s+TABLE\s+([\[\].\w]+)`),
	TableType:       regexp.MustCompile(`(?i)CREATE\s+TYPE\s+([\[\].\w]+)`),
	View:            regexp.MustCompile(`(?i)(?:CREATE|ALTER)\s+VIEW\s+([\[\].\w]+)`),
	StoredProcedure: regexp.MustCompile(`(?i)(?:CREATE|ALTER)\s+(?:PROCEDURE|PROC)\s+([\[\].\w]+)`),
	Function:        regexp.MustCompile(`(?i)(?:CREATE|ALTER)\s+FUNCTION\s+([\[\].\w]+)`),
}

// 📋 Script is one generated ALTER script with its review warnings.
type Script struct {
	Type     ObjectType `json:"sql_type"`
	SQL      string     `json:"alter_sql"`
	Warnings []string   `json:"warnings"`
}

// DetectType classifies DDL content, falling back to filename conventions
// (sp*, vw*, fn*, tbl*) when the content matches nothing.
func DetectType(content, filePath string) ObjectType {
	for _, p := range typePatterns {
		if p.re.MatchString(content) {
			return p.typ
		}
	}

	if filePath != "" {
		base := strings.ToLower(filepath.Base(filePath))
		switch {
		case strings.HasPrefix(base, "sp") || strings.HasPrefix(base, "usp"):
			return StoredProcedure
		case strings.HasPrefix(base, "vw") || strings.HasPrefix(base, "view"):
			return View
		case strings.HasPrefix(base, "fn") || strings.HasPrefix(base, "ufn"):
			return Function
		case strings.HasPrefix(base, "tbl") || strings.HasPrefix(base, "table"):
			return Table
		}
	}

	return Unknown
}

// Generate builds the ALTER script for one DDL file and keyword pair. Tables
// and table types get sp_rename statements so data survives; views,
// procedures, and functions are re-emitted as ALTER so permissions survive.
func Generate(content string, typ ObjectType, search, replace, filePath string) *Script {
	if typ == Unknown || typ == "" {
		typ = DetectType(content, filePath)
	}

	s := &Script{Type: typ}

	objectName := extractObjectName(content, typ)
	if objectName == "" {
		objectName = "<object_name>"
		s.warn("Could not auto-detect object name from DDL. Please replace <object_name> manually.")
	}

	switch typ {
	case Table:
		s.SQL = s.tableAlter(content, objectName, search, replace)
	case TableType:
		s.SQL = s.tableTypeAlter(content, objectName, search, replace)
	case View:
		s.SQL = s.bodyAlter(content, objectName, search, replace, "VIEW",
			"Review the ALTER VIEW output to ensure column aliases and references are correct.")
	case StoredProcedure:
		s.SQL = s.procedureAlter(content, objectName, search, replace)
	case Function:
		s.SQL = s.bodyAlter(content, objectName, search, replace, "FUNCTION",
			"Review return types and internal table references after replacement.")
	default:
		s.SQL = "-- Could not determine SQL object type for this file.\n-- Please review manually."
		s.warn("Unknown SQL object type. Manual review recommended.")
	}

	s.SQL = strings.TrimSpace(s.SQL)
	return s
}

func (s *Script) warn(msg string) {
	s.Warnings = append(s.Warnings, msg)
}

func (s *Script) tableAlter(content, objectName, search, replace string) string {
	cleanName := stripBrackets(objectName)
	short := shortName(objectName)
	var lines []string

	lines = append(lines, header("TABLE", cleanName, search, replace, "sp_rename (preserves data)")...)

	tableRenamed := containsFold(short, search)
	if tableRenamed {
		newTable := applyReplacement(short, search, replace)
		lines = append(lines,
			"-- Rename the table itself",
			fmt.Sprintf("EXEC sp_rename '%s', '%s';", cleanName, newTable),
			"GO",
			"")
		s.warn(fmt.Sprintf("Table rename: %s -> %s. Update all references (views, SPs, code) accordingly.",
			cleanName, newTable))
	}

	var matchingColumns []string
	for _, col := range extractColumnNames(content) {
		if containsFold(col, search) {
			matchingColumns = append(matchingColumns, col)
		}
	}

	if len(matchingColumns) > 0 {
		// Column renames address the table by its post-rename name.
		effectiveTable := cleanName
		if tableRenamed {
			if idx := strings.LastIndex(cleanName, "."); idx >= 0 {
				effectiveTable = cleanName[:idx+1] + applyReplacement(cleanName[idx+1:], search, replace)
			} else {
				effectiveTable = applyReplacement(cleanName, search, replace)
			}
		}

		lines = append(lines, fmt.Sprintf("-- Rename columns containing '%s'", search))
		for _, col := range matchingColumns {
			lines = append(lines,
				fmt.Sprintf("EXEC sp_rename '%s.%s', '%s', 'COLUMN';",
					effectiveTable, col, applyReplacement(col, search, replace)),
				"GO")
		}
		lines = append(lines, "")
	}

	var matchingConstraints []string
	for _, c := range extractConstraintNames(content) {
		if containsFold(c, search) {
			matchingConstraints = append(matchingConstraints, c)
		}
	}
	if len(matchingConstraints) > 0 {
		lines = append(lines, fmt.Sprintf("-- Rename constraints/indexes containing '%s'", search))
		for _, c := range matchingConstraints {
			lines = append(lines,
				fmt.Sprintf("EXEC sp_rename '%s', '%s', 'OBJECT';", c, applyReplacement(c, search, replace)),
				"GO")
		}
		lines = append(lines, "")
		s.warn(fmt.Sprintf("Found %d constraint(s)/index(es) referencing the keyword.", len(matchingConstraints)))
	}

	if len(matchingColumns) == 0 && !tableRenamed && len(matchingConstraints) == 0 {
		lines = append(lines,
			fmt.Sprintf("-- No table/column/constraint names found matching '%s'.", search),
			"-- The keyword may appear in comments or default values only.",
			"-- Review the file manually if needed.")
	}

	return strings.Join(lines, "\n")
}

func (s *Script) tableTypeAlter(content, objectName, search, replace string) string {
	cleanName := stripBrackets(objectName)
	short := shortName(objectName)
	var lines []string

	lines = append(lines, header("TABLE TYPE", cleanName, search, replace, "sp_rename (preserves type)")...)

	typeRenamed := containsFold(short, search)
	if typeRenamed {
		newType := applyReplacement(short, search, replace)
		lines = append(lines,
			"-- Rename the table type",
			fmt.Sprintf("EXEC sp_rename '%s', '%s', 'USERDATATYPE';", cleanName, newType),
			"GO",
			"")
		s.warn(fmt.Sprintf("Table type rename: %s -> %s. Update all SP parameters referencing this type.",
			cleanName, newType))
	}

	var matchingColumns []string
	for _, col := range extractColumnNames(content) {
		if containsFold(col, search) {
			matchingColumns = append(matchingColumns, col)
		}
	}

	if len(matchingColumns) > 0 {
		lines = append(lines,
			"-- Table Types do NOT support column rename via sp_rename.",
			"-- You must DROP and re-CREATE the type to rename columns.",
			"-- Below is the re-created type with replacements applied:",
			"",
			"-- First, check dependencies:",
			fmt.Sprintf("-- SELECT * FROM sys.dm_sql_referencing_entities('%s', 'TYPE');", cleanName),
			"",
			fmt.Sprintf("-- DROP TYPE %s;", cleanName),
			"-- GO",
			"",
			strings.TrimSpace(replaceFold(content, search, replace)),
			"GO")
		s.warn("Table type column rename requires DROP/CREATE. Check dependencies first!")
	}

	if len(matchingColumns) == 0 && !typeRenamed {
		lines = append(lines,
			fmt.Sprintf("-- No type/column names found matching '%s'.", search),
			"-- Review the file manually if needed.")
	}

	return strings.Join(lines, "\n")
}

func (s *Script) bodyAlter(content, objectName, search, replace, keyword, warning string) string {
	cleanName := stripBrackets(objectName)
	altered := replaceCreateWithAlter(content, keyword)
	altered = replaceFold(altered, search, replace)

	lines := header(keyword, cleanName, search, replace,
		fmt.Sprintf("ALTER %s (preserves permissions)", keyword))
	lines = append(lines, strings.TrimSpace(altered), "GO")
	s.warn(warning)
	return strings.Join(lines, "\n")
}

func (s *Script) procedureAlter(content, objectName, search, replace string) string {
	cleanName := stripBrackets(objectName)
	altered := replaceCreateWithAlter(content, "PROCEDURE")
	altered = replaceCreateWithAlter(altered, "PROC")
	altered = replaceFold(altered, search, replace)

	lines := header("STORED PROCEDURE", cleanName, search, replace, "ALTER PROCEDURE (preserves permissions)")
	lines = append(lines, strings.TrimSpace(altered), "GO")
	s.warn("Review parameter names and internal references after replacement.")
	return strings.Join(lines, "\n")
}

func header(kind, name, search, replace, strategy string) []string {
	return []string{
		"-- ==============================================",
		fmt.Sprintf("-- ALTER Script for %s: %s", kind, name),
		fmt.Sprintf("-- Keyword: '%s' -> '%s'", search, replace),
		fmt.Sprintf("-- Strategy: %s", strategy),
		"-- ==============================================",
		"",
	}
}

func extractObjectName(content string, typ ObjectType) string {
	re, ok := namePatterns[typ]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

func stripBrackets(name string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(name)
}

func shortName(fullName string) string {
	stripped := stripBrackets(fullName)
	parts := strings.Split(stripped, ".")
	return parts[len(parts)-1]
}

func containsFold(text, pattern string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(pattern))
}

// replaceFold replaces every occurrence of search regardless of case.
func replaceFold(content, search, replace string) string {
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(search))
	return re.ReplaceAllLiteralString(content, replace)
}

// applyReplacement is replaceFold on a single identifier.
func applyReplacement(text, search, replace string) string {
	return replaceFold(text, search, replace)
}

// replaceCreateWithAlter turns the first "CREATE <keyword>" (or
// "CREATE OR ALTER <keyword>") into "ALTER <keyword>".
func replaceCreateWithAlter(content, keyword string) string {
	orAlter := regexp.MustCompile(`(?i)CREATE\s+OR\s+ALTER\s+` + keyword)
	replaced := false
	content = orAlter.ReplaceAllStringFunc(content, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return "ALTER " + keyword
	})
	if replaced {
		return content
	}

	plain := regexp.MustCompile(`(?i)CREATE\s+` + keyword)
	return plain.ReplaceAllStringFunc(content, func(m string) string {
		if replaced {
			return m
		}
		replaced = true
		return "ALTER " + keyword
	})
}

// sqlKeywords are excluded when column extraction false-matches a
// constraint or body keyword.
var sqlKeywords = map[string]struct{}{
	"CONSTRAINT": {}, "PRIMARY": {}, "FOREIGN": {}, "UNIQUE": {}, "INDEX": {},
	"CHECK": {}, "DEFAULT": {}, "KEY": {}, "REFERENCES": {}, "CLUSTERED": {},
	"NONCLUSTERED": {}, "ASC": {}, "DESC": {}, "WITH": {}, "ON": {}, "NOT": {},
	"NULL": {}, "IDENTITY": {}, "AS": {}, "BEGIN": {}, "END": {}, "RETURN": {},
	"DECLARE": {}, "SET": {}, "IF": {}, "ELSE": {}, "WHILE": {}, "GO": {},
}

var columnDefRe = regexp.MustCompile(`(?im)^\s*[\[@]?(\w+)\]?\s+(?:INT|BIGINT|SMALLINT|TINYINT|BIT|DECIMAL|NUMERIC|FLOAT|REAL|` +
	`MONEY|SMALLMONEY|DATE|DATETIME|DATETIME2|DATETIMEOFFSET|SMALLDATETIME|TIME|` +
	`CHAR|VARCHAR|NCHAR|NVARCHAR|TEXT|NTEXT|BINARY|VARBINARY|IMAGE|` +
	`UNIQUEIDENTIFIER|XML|SQL_VARIANT|HIERARCHYID|GEOGRAPHY|GEOMETRY|TABLE)`)

// extractColumnNames pulls column names out of the parenthesized definition
// block of a CREATE TABLE / CREATE TYPE statement.
func extractColumnNames(content string) []string {
	start := strings.Index(content, "(")
	if start < 0 {
		return nil
	}
	start++

	depth := 1
	end := start
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
				i = len(content)
			}
		}
	}
	block := content[start:end]

	var columns []string
	for _, m := range columnDefRe.FindAllStringSubmatch(block, -1) {
		name := m[1]
		if _, keyword := sqlKeywords[strings.ToUpper(name)]; !keyword {
			columns = append(columns, name)
		}
	}
	return columns
}

var constraintRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CONSTRAINT\s+([\[\]\w.]+)`),
	regexp.MustCompile(`(?i)INDEX\s+([\[\]\w.]+)`),
}

// extractConstraintNames pulls named constraints and indexes out of DDL.
func extractConstraintNames(content string) []string {
	var names []string
	for _, re := range constraintRes {
		for _, m := range re.FindAllStringSubmatch(content, -1) {
			names = append(names, stripBrackets(m[1]))
		}
	}
	return names
}
