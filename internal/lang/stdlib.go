package lang

// stdlibNames lists, per language, the import names that belong to the
// language's standard distribution. The categorizer consults this table so
// that imported stdlib symbols are not reported as entry points.
var stdlibNames = map[Language]map[string]bool{
	Python: set("os", "sys", "re", "json", "math", "time", "datetime",
		"subprocess", "typing", "collections", "itertools", "functools",
		"pathlib", "logging", "unittest", "io", "abc", "asyncio", "socket",
		"threading", "dataclasses", "enum", "random", "string", "shutil",
		"tempfile", "copy", "hashlib", "base64", "urllib", "http", "csv",
		"sqlite3", "pickle", "struct", "contextlib", "traceback", "inspect"),
	JavaScript: set("fs", "path", "http", "https", "url", "util", "os",
		"crypto", "events", "stream", "buffer", "child_process", "net",
		"zlib", "assert", "process", "querystring", "readline", "tls"),
	TypeScript: set("fs", "path", "http", "https", "url", "util", "os",
		"crypto", "events", "stream", "buffer", "child_process", "net",
		"zlib", "assert", "process", "querystring", "readline", "tls"),
	Go: set("fmt", "os", "io", "net", "net/http", "strings", "strconv",
		"bytes", "bufio", "context", "errors", "sync", "time", "sort",
		"path", "path/filepath", "regexp", "encoding/json", "log", "math",
		"crypto/sha256", "database/sql", "testing", "reflect", "runtime"),
	Rust: set("std", "core", "alloc", "test", "proc_macro"),
	Java: set("java.lang", "java.util", "java.io", "java.net", "java.nio",
		"java.time", "java.math", "java.sql", "java.text", "javax.sql"),
	CSharp: set("System", "System.IO", "System.Net", "System.Text",
		"System.Linq", "System.Collections", "System.Collections.Generic",
		"System.Threading", "System.Threading.Tasks", "System.Data"),
	Cpp: set("iostream", "vector", "string", "map", "set", "memory",
		"algorithm", "functional", "utility", "cstdio", "cstdlib", "cstring",
		"thread", "mutex", "chrono", "fstream", "sstream"),
	PHP: set("PDO", "SplStack", "SplQueue", "ArrayObject", "DateTime",
		"Exception", "Closure", "Generator", "stdClass"),
	Ruby: set("json", "net/http", "uri", "fileutils", "set", "time", "date",
		"logger", "open3", "pathname", "stringio", "tempfile", "thread"),
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// IsStdlibName reports whether name is a standard-library import for the
// language. Unknown languages report false for everything.
func (r *Registry) IsStdlibName(l Language, name string) bool {
	return stdlibNames[l][name]
}
