package validate

var csharpKeywords = []string{
	"abstract", "as", "base", "bool", "break", "byte", "case", "catch", "char",
	"checked", "class", "const", "continue", "decimal", "default", "delegate", "do",
	"double", "else", "enum", "event", "explicit", "extern", "false", "finally",
	"fixed", "float", "for", "foreach", "goto", "if", "implicit", "in", "int",
	"interface", "internal", "is", "lock", "long", "namespace", "new", "null",
	"object", "operator", "out", "override", "params", "private", "protected",
	"public", "readonly", "ref", "return", "sbyte", "sealed", "short", "sizeof",
	"stackalloc", "static", "string", "struct", "switch", "this", "throw", "true",
	"try", "typeof", "uint", "ulong", "unchecked", "unsafe", "ushort", "using",
	"virtual", "void", "volatile", "while",
	// contextual keywords that break generated parameters and locals
	"async", "await", "dynamic", "nameof", "record", "value", "var", "when", "where",
	"yield",
}

// frameworkTypes are names from System and the ABP base classes used by the
// generated code.
var frameworkTypes = []string{
	"Action", "Array", "Attribute", "Console", "DateTime", "Delegate", "Enum",
	"Environment", "EventArgs", "Exception", "Func", "Guid", "Math", "Object",
	"Random", "String", "Task", "Thread", "TimeSpan", "Type", "Uri", "Version",
	"List", "Dictionary", "Monitor", "Path", "File", "Directory",
	"Entity", "AggregateRoot", "ApplicationService", "AbpController", "DbContext",
	"EntityDto", "PagedResultDto", "Repository", "ValueObject", "IdentityUser",
}
