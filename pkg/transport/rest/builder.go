// pkg/transport/rest/builder.go
package rest

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/saturnines/msisdn-extractor/pkg/auth"
	"github.com/saturnines/msisdn-extractor/pkg/config"
	"github.com/saturnines/msisdn-extractor/pkg/errors"
)

// UserAgent is sent unless overridden by configured headers
const UserAgent = "msisdn-extractor"

// matches {{VARIABLE_NAME}}
var templatePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Builder builds one REST request per identifier.
type Builder struct {
	Endpoint         string
	Method           string
	Mode             config.TargetMode
	Param            string
	IdentifierHeader string
	Headers          map[string]string
	QueryParams      map[string]string
	AuthHandler      auth.Handler
}

// NewBuilder constructs a Builder from the source config.
// Method defaults to GET and mode to query.
func NewBuilder(src config.Source, authHandler auth.Handler) *Builder {
	method := strings.ToUpper(src.Method)
	if method == "" {
		method = http.MethodGet
	}
	mode := src.Target.Mode
	if mode == "" {
		mode = config.TargetModeQuery
	}
	param := src.Target.Param
	if param == "" {
		param = config.DefaultTargetParam
	}
	return &Builder{
		Endpoint:         src.Endpoint,
		Method:           method,
		Mode:             mode,
		Param:            param,
		IdentifierHeader: src.Target.Header,
		Headers:          src.Headers,
		QueryParams:      src.QueryParams,
		AuthHandler:      authHandler,
	}
}

// Build creates the request for one identifier.
func (b *Builder) Build(ctx context.Context, msisdn string) (*http.Request, error) {
	target, err := b.Target(msisdn)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, b.Method, target, nil)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrHTTPRequest, "failed to create HTTP request")
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range b.Headers {
		req.Header.Set(k, substituteTemplateVariables(v))
	}
	if b.IdentifierHeader != "" {
		req.Header.Set(b.IdentifierHeader, msisdn)
	}

	if b.AuthHandler != nil {
		if err := b.AuthHandler.ApplyAuth(req); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// Target returns the full request URL for one identifier.
func (b *Builder) Target(msisdn string) (string, error) {
	endpoint := substituteTemplateVariables(b.Endpoint)
	if b.Mode == config.TargetModeTemplate {
		endpoint = fillTemplate(endpoint, msisdn)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.WrapError(err, errors.ErrHTTPRequest, "invalid endpoint")
	}

	if b.Mode == config.TargetModePath {
		escaped := strings.TrimRight(u.EscapedPath(), "/") + "/" + url.PathEscape(msisdn)
		u.Path = strings.TrimRight(u.Path, "/") + "/" + msisdn
		u.RawPath = escaped
	}

	if len(b.QueryParams) > 0 || b.Mode == config.TargetModeQuery {
		q := u.Query()
		for k, v := range b.QueryParams {
			q.Set(k, substituteTemplateVariables(v))
		}
		if b.Mode == config.TargetModeQuery {
			q.Set(b.Param, msisdn)
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

// fillTemplate puts msisdn in place of every placeholder, escaped for the
// part of the URL it lands in
func fillTemplate(endpoint, msisdn string) string {
	path, query, hasQuery := strings.Cut(endpoint, "?")
	path = strings.ReplaceAll(path, config.TemplatePlaceholder, url.PathEscape(msisdn))
	if !hasQuery {
		return path
	}
	return path + "?" + strings.ReplaceAll(query, config.TemplatePlaceholder, url.QueryEscape(msisdn))
}

// substituteTemplateVariables replaces {{VAR_NAME}} with environment variable values.
// The identifier placeholder and unset variables are left alone.
func substituteTemplateVariables(text string) string {
	return templatePattern.ReplaceAllStringFunc(text, func(match string) string {
		if match == config.TemplatePlaceholder {
			return match
		}
		varName := strings.TrimSpace(match[2 : len(match)-2])
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})
}
