// Package sandbox hosts the isolated script engine. It is built on
// github.com/dop251/goja, a pure-Go ECMAScript engine with no
// filesystem, process, or network access of its own — the only way a
// running script reaches the outside world is through the native
// functions this package installs on every fresh goja.Runtime.
//
// goja runs synchronously, so the logically-async host ops
// (fetch/callMCPTool/invokeCallback) are bridged through goja
// Promises whose resolve/reject are invoked from a small in-process
// job queue, the same run-to-completion-then-drain idiom the
// goja_nodejs eventloop package uses, reimplemented minimally here to
// avoid an extra dependency for a handful of host ops.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/codemoderun/codemode/internal/domain/codeerr"
	"github.com/codemoderun/codemode/internal/domain/toolmodel"
)

// Options configures one execute call. Prelude is the generated
// namespace/function declarations; Code is the user's source, which
// must define async function run(). Nothing checks this beforehand: a
// script without run() fails with a ScriptException when the tail
// calls it.
type Options struct {
	Prelude      string
	Code         string
	AllowedHosts []string
	Host         Host
	Timeout      time.Duration
	Programs     *ProgramCache
	HTTPClient   *http.Client
}

// Execute runs one script to completion in a fresh isolate, owned for
// the duration of this call by the calling goroutine. It never
// panics: any goja or host failure is captured into the returned
// ExecuteOutput.
func Execute(ctx context.Context, opts Options) toolmodel.ExecuteOutput {
	rt := newRuntime(opts)
	return rt.run(ctx, opts)
}

type runtime struct {
	vm      *goja.Runtime
	host    Host
	allowed map[string]struct{}
	client  *http.Client

	jobs chan func()

	stdout []string
	stderr []string
}

func newRuntime(opts Options) *runtime {
	allowed := make(map[string]struct{}, len(opts.AllowedHosts))
	for _, h := range opts.AllowedHosts {
		allowed[strings.ToLower(h)] = struct{}{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	rt := &runtime{
		vm:      goja.New(),
		host:    opts.Host,
		allowed: allowed,
		client:  client,
		jobs:    make(chan func(), 16),
	}
	rt.install()
	return rt
}

// install wires every host-visible global exactly once, before the
// prelude or user code runs.
func (rt *runtime) install() {
	console := rt.vm.NewObject()
	_ = console.Set("log", rt.consoleFunc(&rt.stdout))
	_ = console.Set("info", rt.consoleFunc(&rt.stdout))
	_ = console.Set("debug", rt.consoleFunc(&rt.stdout))
	_ = console.Set("error", rt.consoleFunc(&rt.stderr))
	_ = console.Set("warn", rt.consoleFunc(&rt.stderr))
	_ = rt.vm.Set("console", console)

	_ = rt.vm.Set("fetch", rt.fetchFunc())
	_ = rt.vm.Set("callMCPTool", rt.callMCPToolFunc())
	_ = rt.vm.Set("invokeCallback", rt.invokeCallbackFunc())
}

// consoleFunc builds a console.* override that JSON-stringifies
// non-string arguments and appends the formatted line to stream.
func (rt *runtime) consoleFunc(stream *[]string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, formatConsoleArg(arg))
		}
		*stream = append(*stream, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func formatConsoleArg(v goja.Value) string {
	exported := v.Export()
	if s, ok := exported.(string); ok {
		return s
	}
	encoded, err := json.Marshal(exported)
	if err != nil {
		return fmt.Sprintf("%v", exported)
	}
	return string(encoded)
}

// fetchFunc implements globalThis.fetch bound to the allow-list check:
// a missing host rejects the promise without ever making the call.
func (rt *runtime) fetchFunc() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := rt.vm.NewPromise()
		rawURL := call.Argument(0).String()

		parsed, err := url.Parse(rawURL)
		if err != nil || parsed.Hostname() == "" {
			reject(rt.errorValue(codeerr.KindHostBlocked, "invalid url: "+rawURL))
			return rt.vm.ToValue(promise)
		}
		if _, ok := rt.allowed[strings.ToLower(parsed.Hostname())]; !ok {
			reject(rt.errorValue(codeerr.KindHostBlocked, "host not allowed: "+parsed.Hostname()))
			return rt.vm.ToValue(promise)
		}

		method := "GET"
		var body io.Reader
		if len(call.Arguments) > 1 {
			if opts, ok := call.Argument(1).Export().(map[string]any); ok {
				if m, ok := opts["method"].(string); ok && m != "" {
					method = m
				}
				if b, ok := opts["body"].(string); ok {
					body = strings.NewReader(b)
				}
			}
		}

		go func() {
			req, err := http.NewRequest(method, rawURL, body)
			if err != nil {
				rt.schedule(func() { reject(rt.errorValue(codeerr.KindHostBlocked, err.Error())) })
				return
			}
			resp, err := rt.client.Do(req)
			if err != nil {
				rt.schedule(func() { reject(rt.errorValue(codeerr.KindHostBlocked, err.Error())) })
				return
			}
			defer resp.Body.Close()
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				rt.schedule(func() { reject(rt.errorValue(codeerr.KindHostBlocked, err.Error())) })
				return
			}
			status := resp.StatusCode
			rt.schedule(func() {
				resolve(map[string]any{
					"status": status,
					"ok":     status >= 200 && status < 300,
					"text":   string(data),
				})
			})
		}()

		return rt.vm.ToValue(promise)
	}
}

// callMCPToolFunc implements globalThis.callMCPTool({name, tool,
// arguments}) -> Promise, the prelude body generated for MCP tools.
func (rt *runtime) callMCPToolFunc() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := rt.vm.NewPromise()

		params, _ := call.Argument(0).Export().(map[string]any)
		server, _ := params["name"].(string)
		tool, _ := params["tool"].(string)
		args, _ := params["arguments"].(map[string]any)

		if rt.host == nil {
			reject(rt.errorValue(codeerr.KindMcpUnavailable, "no host bound to this sandbox"))
			return rt.vm.ToValue(promise)
		}

		go func() {
			result, err := rt.host.CallMCPTool(context.Background(), server, tool, args)
			rt.schedule(func() {
				if err != nil {
					reject(rt.errorValue(kindOrDefault(err, codeerr.KindMcpUnavailable), err.Error()))
					return
				}
				resolve(result)
			})
		}()

		return rt.vm.ToValue(promise)
	}
}

// invokeCallbackFunc implements globalThis.invokeCallback(id, args) ->
// Promise, the prelude body generated for callback tools.
func (rt *runtime) invokeCallbackFunc() func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		promise, resolve, reject := rt.vm.NewPromise()

		idText := call.Argument(0).String()
		var args json.RawMessage
		if raw, err := json.Marshal(call.Argument(1).Export()); err == nil {
			args = raw
		}

		if rt.host == nil {
			reject(rt.errorValue(codeerr.KindCallbackError, "no host bound to this sandbox"))
			return rt.vm.ToValue(promise)
		}

		namespace, name, ok := splitFunctionId(idText)
		if !ok {
			reject(rt.errorValue(codeerr.KindToolNotFound, "malformed function id: "+idText))
			return rt.vm.ToValue(promise)
		}
		id := toolmodel.FunctionId{Namespace: namespace, Name: name}

		go func() {
			result, err := rt.host.InvokeCallback(context.Background(), id, args)
			rt.schedule(func() {
				if err != nil {
					reject(rt.errorValue(kindOrDefault(err, codeerr.KindCallbackError), err.Error()))
					return
				}
				var decoded any
				if len(result) > 0 {
					_ = json.Unmarshal(result, &decoded)
				}
				resolve(decoded)
			})
		}()

		return rt.vm.ToValue(promise)
	}
}

func splitFunctionId(text string) (namespace, name string, ok bool) {
	idx := strings.LastIndex(text, ".")
	if idx <= 0 || idx == len(text)-1 {
		return "", "", false
	}
	return text[:idx], text[idx+1:], true
}

func kindOrDefault(err error, fallback codeerr.Kind) codeerr.Kind {
	if kind, ok := codeerr.KindOf(err); ok {
		return kind
	}
	return fallback
}

// errorValue builds the {code, message} structured rejection shape.
func (rt *runtime) errorValue(kind codeerr.Kind, message string) goja.Value {
	return rt.vm.ToValue(map[string]any{"code": string(kind), "message": message})
}

// schedule hands a resolve/reject continuation back to the runtime's
// own goroutine. It must never be called from the goroutine owning
// rt.vm itself.
func (rt *runtime) schedule(job func()) {
	rt.jobs <- job
}

// run compiles and executes the assembled source on the calling
// goroutine, which owns this isolate for the duration of the call.
// Calling an async function returns as soon as that function hits its first
// await, so RunProgram itself returns almost immediately; the real
// work happens while this method drains rt.jobs, each entry being a
// resolve/reject continuation a host-op goroutine handed back.
func (rt *runtime) run(ctx context.Context, opts Options) toolmodel.ExecuteOutput {
	source := assembleSource(opts.Prelude, opts.Code)

	var program *goja.Program
	var err error
	if opts.Programs != nil {
		program, err = opts.Programs.Compile("script.js", source)
	} else {
		program, err = goja.Compile("script.js", source, false)
	}
	if err != nil {
		return toolmodel.ExecuteOutput{
			Success: false,
			Error:   &toolmodel.ExecuteError{Kind: string(codeerr.KindScriptException), Message: err.Error()},
			Stdout:  rt.stdout,
			Stderr:  rt.stderr,
		}
	}

	doneCh := make(chan doneResult, 1)
	_ = rt.vm.Set("__onDone", func(call goja.FunctionCall) goja.Value {
		ok := call.Argument(0).ToBoolean()
		doneCh <- doneResult{ok: ok, value: call.Argument(1)}
		return goja.Undefined()
	})

	if _, err := rt.vm.RunProgram(program); err != nil {
		return toolmodel.ExecuteOutput{
			Success: false,
			Error:   exceptionToError(err),
			Stdout:  rt.stdout,
			Stderr:  rt.stderr,
		}
	}

	var timeoutCh <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	for {
		select {
		case result := <-doneCh:
			if !result.ok {
				return toolmodel.ExecuteOutput{
					Success: false,
					Error:   exceptionValueToError(result.value),
					Stdout:  rt.stdout,
					Stderr:  rt.stderr,
				}
			}
			return toolmodel.ExecuteOutput{
				Success: true,
				Value:   exportOrNil(result.value),
				Stdout:  rt.stdout,
				Stderr:  rt.stderr,
			}
		case job := <-rt.jobs:
			job()
		case <-timeoutCh:
			rt.vm.Interrupt("execution timed out")
			return toolmodel.ExecuteOutput{
				Success: false,
				Error:   &toolmodel.ExecuteError{Kind: string(codeerr.KindTimeout), Message: "execution timed out"},
				Stdout:  rt.stdout,
				Stderr:  rt.stderr,
			}
		case <-ctx.Done():
			rt.vm.Interrupt(ctx.Err())
			return toolmodel.ExecuteOutput{
				Success: false,
				Error:   &toolmodel.ExecuteError{Kind: string(codeerr.KindTimeout), Message: ctx.Err().Error()},
				Stdout:  rt.stdout,
				Stderr:  rt.stderr,
			}
		}
	}
}

type doneResult struct {
	ok    bool
	value goja.Value
}

func exportOrNil(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func exceptionValueToError(v goja.Value) *toolmodel.ExecuteError {
	exported := exportOrNil(v)
	if m, ok := exported.(map[string]any); ok {
		message, _ := m["message"].(string)
		stack, _ := m["stack"].(string)
		if message != "" {
			return &toolmodel.ExecuteError{Kind: string(codeerr.KindScriptException), Message: message, Stack: stack}
		}
	}
	return &toolmodel.ExecuteError{Kind: string(codeerr.KindScriptException), Message: fmt.Sprintf("%v", exported)}
}

func exceptionToError(err error) *toolmodel.ExecuteError {
	if exc, ok := err.(*goja.Exception); ok {
		return &toolmodel.ExecuteError{
			Kind:    string(codeerr.KindScriptException),
			Message: exc.Value().String(),
			Stack:   exc.String(),
		}
	}
	return &toolmodel.ExecuteError{Kind: string(codeerr.KindScriptException), Message: err.Error()}
}

// assembleSource appends a tail that awaits run() and reports
// completion through __onDone, assigning the result to a reserved
// global.
func assembleSource(prelude, code string) string {
	var b strings.Builder
	b.WriteString(prelude)
	b.WriteString("\n")
	b.WriteString(code)
	b.WriteString(`
(async function () {
  try {
    var __result = await run();
    globalThis.__result = __result;
    __onDone(true, __result);
  } catch (e) {
    var __message = (e && e.message) ? e.message : String(e);
    var __stack = (e && e.stack) ? e.stack : "";
    __onDone(false, { message: __message, stack: __stack });
  }
})();
`)
	return b.String()
}
