package dom

// Prefix namespaces every declarative attribute recognised in a host document.
const Prefix = "data-lb-"

// Declarative attribute vocabulary.
const (
	AttrListID                = Prefix + "list-id"
	AttrProgram               = Prefix + "program"
	AttrTemplate              = Prefix + "template"
	AttrLoading               = Prefix + "loading"
	AttrError                 = Prefix + "error"
	AttrEmpty                 = Prefix + "empty"
	AttrField                 = Prefix + "field"
	AttrFormat                = Prefix + "format"
	AttrRepeat                = Prefix + "repeat"
	AttrMax                   = Prefix + "max"
	AttrLimit                 = Prefix + "limit"
	AttrAction                = Prefix + "action"
	AttrListTarget            = Prefix + "list-target"
	AttrShowWhen              = Prefix + "show-when"
	AttrHideWhen              = Prefix + "hide-when"
	AttrPrerenderPlaceholders = Prefix + "prerender-placeholders"
	AttrFilter                = Prefix + "filter"
	AttrFilterType            = Prefix + "filter-type"
	AttrStars                 = Prefix + "stars"
	AttrProgramField          = Prefix + "program-field"
	AttrItem                  = Prefix + "item"
	AttrPlaceholder           = Prefix + "placeholder"
)

// CSS state classes toggled by the runtime.
const (
	ClassError   = "lb-error"
	ClassLoading = "lb-loading"
	ClassEmpty   = "lb-empty"
)
