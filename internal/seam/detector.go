// Package seam recognizes cross-language call sites: code in one language
// invoking code in another through a string-identified endpoint (an SQL
// query, an HTTP path, a shell command, an FFI symbol). The detector owns a
// registry of (caller language, API shape) rules; the parser feeds it call
// sites and decorators, the store links the resulting seam facts into SEAM
// edges at commit time.
package seam

import (
	"strings"
	"sync"

	"github.com/standardbeagle/codegraph/internal/lang"
)

// Logical target languages for seam edges.
const (
	TargetSQL   = "SQL"
	TargetHTTP  = "HTTP"
	TargetShell = "SHELL"
	TargetFFI   = "FFI"
)

// Rule matches a call-site API shape for one caller language. APIPatterns
// are substrings tested against the callee expression text.
type Rule struct {
	Caller      lang.Language // "" matches any language
	APIPatterns []string
	Target      string
}

// ProviderRule matches a declaration-side API shape: a route registration or
// decorator that makes the enclosing declaration serve an endpoint.
type ProviderRule struct {
	Caller      lang.Language
	APIPatterns []string
	Target      string
}

// Detector is the seam pattern registry. The built-in table can be extended
// with Register at startup; registration is safe for concurrent use with
// matching.
type Detector struct {
	mu            sync.RWMutex
	rules         []Rule
	providerRules []ProviderRule
}

// NewDetector builds a detector with the built-in rule table.
func NewDetector() *Detector {
	d := &Detector{}

	d.rules = []Rule{
		// Python
		{lang.Python, []string{"subprocess.", "os.system", "os.popen"}, TargetShell},
		{lang.Python, []string{".execute", ".executemany", "sqlalchemy.text", "text("}, TargetSQL},
		{lang.Python, []string{"requests.", "urllib.request", "httpx."}, TargetHTTP},
		{lang.Python, []string{"ctypes.CDLL", "ctypes.cdll"}, TargetFFI},
		// JavaScript / TypeScript
		{lang.JavaScript, []string{"fetch", "axios."}, TargetHTTP},
		{lang.JavaScript, []string{".query", "sqlite3.prepare", ".prepare"}, TargetSQL},
		{lang.TypeScript, []string{"fetch", "axios."}, TargetHTTP},
		{lang.TypeScript, []string{".query", "sqlite3.prepare", ".prepare"}, TargetSQL},
		// C#
		{lang.CSharp, []string{"SqlConnection", "SqlCommand", "ExecuteReader", "ExecuteNonQuery"}, TargetSQL},
		{lang.CSharp, []string{"HttpClient.", ".GetAsync", ".PostAsync", ".SendAsync"}, TargetHTTP},
		// Go
		{lang.Go, []string{".Query", ".QueryRow", ".Exec", "sql.Open"}, TargetSQL},
		{lang.Go, []string{"http.Get", "http.Post", "http.NewRequest", "http.PostForm"}, TargetHTTP},
		{lang.Go, []string{"exec.Command"}, TargetShell},
		// Rust
		{lang.Rust, []string{"reqwest::"}, TargetHTTP},
		{lang.Rust, []string{"sqlx::query", "sqlx::query_as"}, TargetSQL},
		{lang.Rust, []string{"Command::new"}, TargetShell},
	}

	d.providerRules = []ProviderRule{
		{lang.Python, []string{"app.route", "app.get", "app.post", "app.put",
			"app.delete", "router.get", "router.post", "blueprint.route"}, TargetHTTP},
		{lang.JavaScript, []string{"app.get", "app.post", "app.put", "app.delete",
			"router.get", "router.post", "router.put", "router.delete", "app.use"}, TargetHTTP},
		{lang.TypeScript, []string{"app.get", "app.post", "app.put", "app.delete",
			"router.get", "router.post", "router.put", "router.delete", "app.use"}, TargetHTTP},
		{lang.Go, []string{"http.HandleFunc", "http.Handle", "mux.HandleFunc"}, TargetHTTP},
		{lang.CSharp, []string{"MapGet", "MapPost", "HttpGet", "HttpPost"}, TargetHTTP},
	}

	return d
}

// Register adds a call rule at startup.
func (d *Detector) Register(r Rule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rules = append(d.rules, r)
}

// RegisterProvider adds a provider rule at startup.
func (d *Detector) RegisterProvider(r ProviderRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providerRules = append(d.providerRules, r)
}

// MatchCall tests a callee expression against the call rules for the given
// language and returns the logical target language on a hit.
func (d *Detector) MatchCall(l lang.Language, calleeText string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.rules {
		if r.Caller != "" && r.Caller != l {
			continue
		}
		for _, p := range r.APIPatterns {
			if matchAPI(calleeText, p) {
				return r.Target, true
			}
		}
	}
	return "", false
}

// MatchProvider tests a registration or decorator expression against the
// provider rules.
func (d *Detector) MatchProvider(l lang.Language, text string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, r := range d.providerRules {
		if r.Caller != "" && r.Caller != l {
			continue
		}
		for _, p := range r.APIPatterns {
			if strings.Contains(text, p) {
				return r.Target, true
			}
		}
	}
	return "", false
}

// matchAPI matches callee text against one pattern. A bare-identifier
// pattern like "fetch" must match the whole callee or a trailing member, so
// that "prefetchData" is not a seam.
func matchAPI(callee, pattern string) bool {
	if strings.ContainsAny(pattern, ".(:") {
		return strings.Contains(callee, pattern)
	}
	if callee == pattern {
		return true
	}
	return strings.HasSuffix(callee, "."+pattern)
}

// NormalizeEndpoint strips the quoting from a string-literal endpoint
// argument. Tree-sitter string nodes keep their delimiters; seam endpoints
// are stored bare.
func NormalizeEndpoint(literal string) string {
	s := strings.TrimSpace(literal)
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') ||
			(first == '`' && last == '`') {
			s = s[1 : len(s)-1]
			continue
		}
		break
	}
	// Python prefixed literals: r"...", f"...", b"..."
	if len(s) >= 2 && (s[0] == 'r' || s[0] == 'f' || s[0] == 'b') &&
		(s[1] == '"' || s[1] == '\'') {
		return NormalizeEndpoint(s[1:])
	}
	return s
}
