// Package mcpclient brings up upstream MCP servers and invokes their
// tools. One Connection wraps exactly one upstream; a Manager owns the
// whole set and brings them up in parallel.
package mcpclient

// ServerSpec describes one upstream MCP server to connect to. Exactly
// one of Http/Stdio is set, mirroring the wire config's HttpServer /
// StdioServer union.
type ServerSpec struct {
	Name string

	Http  *HttpTransportSpec
	Stdio *StdioTransportSpec

	// AllowedHosts overrides the automatic host-allowlist derivation
	// for an Http upstream. Nil means derive from Http.URL.
	AllowedHosts []string
}

// HttpTransportSpec configures a streamable-HTTP upstream.
type HttpTransportSpec struct {
	URL string
	// Headers carries already-resolved values; the adapter never
	// re-resolves a secret reference itself.
	Headers map[string]string
}

// StdioTransportSpec configures a child-process upstream.
type StdioTransportSpec struct {
	Command string
	Args    []string
	Env     []string
}
