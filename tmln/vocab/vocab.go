// Package vocab holds the fixed vocabulary of the timeline language and the
// closed set of token categories the lexer assigns.
//
// The tables are version-controlled data, not configuration. Order inside
// each table is significant: completion ranks ties by it.
package vocab

// Category classifies a span of timeline source
type Category string

const (
	Comment    Category = "comment"
	String     Category = "string"
	Number     Category = "number"
	Keyword    Category = "keyword"
	Property   Category = "property"
	Constant   Category = "constant"
	Operator   Category = "operator"
	Whitespace Category = "whitespace"
)

// Categories lists every category in rule priority order
var Categories = []Category{Comment, String, Number, Keyword, Property, Constant, Operator, Whitespace}

// SubCategory partitions the constants table
type SubCategory string

const (
	SubNone             SubCategory = ""
	SubImportance       SubCategory = "importance"
	SubRelationshipType SubCategory = "relationship-type"
	SubBoolean          SubCategory = "boolean"
	SubEra              SubCategory = "era"
)

// Entry is one vocabulary word with an optional sub-category and a short
// description used for hover text.
type Entry struct {
	Word string
	Sub  SubCategory
	Doc  string
}

// Keywords introduce declarations and statements
var Keywords = []Entry{
	{Word: "event", Doc: "Declare a point-in-time event"},
	{Word: "period", Doc: "Declare a span between two dates"},
	{Word: "timeline", Doc: "Group events and periods into a timeline"},
	{Word: "relationship", Doc: "Relate two components"},
	{Word: "main", Doc: "Entry block executed by the evaluator"},
	{Word: "export", Doc: "Export a component as the evaluation result"},
	{Word: "if", Doc: "Conditional statement"},
	{Word: "else", Doc: "Alternative branch of an if statement"},
	{Word: "for", Doc: "Iterate over the components of a timeline"},
	{Word: "in", Doc: "Iteration source of a for statement"},
	{Word: "modify", Doc: "Reassign properties of a component"},
}

// Properties name the fields assigned inside declaration blocks
var Properties = []Entry{
	{Word: "title", Doc: "Display title (string)"},
	{Word: "date", Doc: "Date of an event"},
	{Word: "start", Doc: "Start date of a period"},
	{Word: "end", Doc: "End date of a period"},
	{Word: "importance", Doc: "high, medium or low"},
	{Word: "from", Doc: "Source component of a relationship"},
	{Word: "to", Doc: "Target component of a relationship"},
	{Word: "type", Doc: "Relationship type"},
	{Word: "year", Doc: "Year component of a date"},
	{Word: "month", Doc: "Month component of a date"},
	{Word: "day", Doc: "Day component of a date"},
}

// Constants are the language's literal words
var Constants = []Entry{
	{Word: "high", Sub: SubImportance, Doc: "Highest importance"},
	{Word: "medium", Sub: SubImportance, Doc: "Default importance"},
	{Word: "low", Sub: SubImportance, Doc: "Lowest importance"},
	{Word: "cause-effect", Sub: SubRelationshipType, Doc: "From causes to"},
	{Word: "contemporaneous", Sub: SubRelationshipType, Doc: "From happens alongside to"},
	{Word: "precedes", Sub: SubRelationshipType, Doc: "From happens before to"},
	{Word: "follows", Sub: SubRelationshipType, Doc: "From happens after to"},
	{Word: "includes", Sub: SubRelationshipType, Doc: "From contains to"},
	{Word: "excludes", Sub: SubRelationshipType, Doc: "From and to do not overlap"},
	{Word: "true", Sub: SubBoolean, Doc: "Boolean true"},
	{Word: "false", Sub: SubBoolean, Doc: "Boolean false"},
	{Word: "BCE", Sub: SubEra, Doc: "Before common era"},
	{Word: "CE", Sub: SubEra, Doc: "Common era"},
}

var index = buildIndex()

func buildIndex() map[string]Lookup {
	idx := make(map[string]Lookup, len(Keywords)+len(Properties)+len(Constants))
	add := func(cat Category, entries []Entry) {
		for i, e := range entries {
			idx[e.Word] = Lookup{Entry: e, Category: cat, Position: i}
		}
	}
	add(Keyword, Keywords)
	add(Property, Properties)
	add(Constant, Constants)
	return idx
}

// Lookup is the result of resolving a word against the tables
type Lookup struct {
	Entry
	Category Category
	Position int // index within its table
}

// Find resolves word against all three tables. Matching is exact and case sensitive.
func Find(word string) (Lookup, bool) {
	l, ok := index[word]
	return l, ok
}

// Table returns the entries for a vocabulary category, or nil for
// categories that have no table.
func Table(cat Category) []Entry {
	switch cat {
	case Keyword:
		return Keywords
	case Property:
		return Properties
	case Constant:
		return Constants
	default:
		return nil
	}
}

// ConstantsOf returns the constants in a sub-category, in table order
func ConstantsOf(sub SubCategory) []Entry {
	var out []Entry
	for _, e := range Constants {
		if e.Sub == sub {
			out = append(out, e)
		}
	}
	return out
}

// Size is the total number of vocabulary words
func Size() int {
	return len(Keywords) + len(Properties) + len(Constants)
}
