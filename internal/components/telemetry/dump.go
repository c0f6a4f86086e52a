package telemetry

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	noBody        = "<NO BODY AVAILABLE>"
	redactedValue = "<redacted>"
)

func renderHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range headers[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func requestBody(req *http.Request) string {
	if req.GetBody == nil {
		return noBody
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err)
	}
	if body == nil {
		return noBody
	}
	defer body.Close()
	read, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err)
	}
	return string(read)
}

// renderExchange renders a request and its response in a readable plain
// text form.
func renderExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("---- REQUEST ----\n\n")
	fmt.Fprintf(&out, "%s %s\n\n", res.Request.Method, res.Request.URL)
	renderHeaders(&out, res.Request.RawRequest.Header)
	out.WriteString("\n")
	out.WriteString(requestBody(res.Request.RawRequest))

	location := ""
	if res.RawResponse != nil {
		if redirect, err := res.RawResponse.Location(); err == nil {
			location = " -> " + redirect.String()
		}
	}

	out.WriteString("\n\n---- RESPONSE ----\n\n")
	fmt.Fprintf(&out, "%s%s\n\n", strconv.Itoa(res.StatusCode()), location)
	renderHeaders(&out, res.Header())
	out.WriteString("\n")
	out.WriteString(res.String())
	return out.String()
}

// redact masks the values of the given names wherever they show up as
// "name=value" (cookies, forms, queries) or as a json string field.
func redact(text string, names []string) string {
	for _, name := range names {
		text = maskValues(text, name+"=", "; &\r\n\t\"")
		text = maskValues(text, `"`+name+`":"`, `"`)
		text = maskValues(text, `"`+name+`": "`, `"`)
	}
	return text
}

func maskValues(text, prefix, terminators string) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var out strings.Builder
	for {
		i := strings.Index(text, prefix)
		if i < 0 {
			out.WriteString(text)
			return out.String()
		}
		out.WriteString(text[:i+len(prefix)])
		text = text[i+len(prefix):]

		end := strings.IndexAny(text, terminators)
		if end < 0 {
			end = len(text)
		}
		if end > 0 {
			out.WriteString(redactedValue)
		}
		text = text[end:]
	}
}
