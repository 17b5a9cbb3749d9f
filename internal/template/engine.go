// Package template expands compact share configs into full engine
// configuration documents from named builtin skeletons.
package template

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"oxray-share/internal/domain"
)

// placeholder marks where a skeleton routes through the imported proxy:
// dns server detours, dns.final and route.final.
const placeholder = "PROXY_OUTBOUND"

type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger}
}

// Expand renders the full configuration document for a compact config.
// The outbound tag is resolved once and substituted for every placeholder
// occurrence; dns/route overrides replace their whole top-level section.
func (e *Engine) Expand(cfg *domain.CompactShareableConfig) (string, error) {
	skeleton, ok := skeletons[cfg.TemplateID]
	if !ok {
		e.logger.Warn("unknown template id, falling back to default",
			zap.String("template_id", cfg.TemplateID),
			zap.String("fallback", DefaultTemplateID))
		skeleton = skeletons[DefaultTemplateID]
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(skeleton), &doc); err != nil {
		return "", fmt.Errorf("%w: skeleton %q: %w", domain.ErrInvalidTemplate, cfg.TemplateID, err)
	}

	tag := cfg.ServerParams.OutboundTag()

	outbounds := []any{buildOutbound(cfg.ServerParams, tag), directOutbound()}
	if extras, ok := doc["outbounds"].([]any); ok {
		outbounds = append(outbounds, extras...)
	}
	doc["outbounds"] = outbounds

	substitute(doc, tag)

	if err := applyOverride(doc, "dns", cfg.DNSOverride); err != nil {
		return "", err
	}
	if err := applyOverride(doc, "route", cfg.RouteOverride); err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal document: %w", domain.ErrInvalidTemplate, err)
	}

	e.logger.Debug("expanded template",
		zap.String("template_id", cfg.TemplateID),
		zap.String("outbound_tag", tag))
	return string(out), nil
}

// buildOutbound assembles the proxy outbound descriptor from the shared
// server parameters, in the engine's snake_case dialect.
func buildOutbound(p domain.ServerParameters, tag string) map[string]any {
	outbound := map[string]any{
		"type":        p.ProtocolType(),
		"tag":         tag,
		"server":      p.Server,
		"server_port": p.ServerPort,
		"method":      p.Method,
		"password":    p.Password,
	}

	if p.Network != "" {
		outbound["network"] = p.Network
	}

	if p.TLS {
		tls := map[string]any{
			"enabled":     true,
			"server_name": p.Server,
		}
		if p.SNI != "" {
			tls["server_name"] = p.SNI
		}
		if len(p.ALPN) > 0 {
			tls["alpn"] = p.ALPN
		}
		outbound["tls"] = tls
	}

	switch p.Network {
	case "ws", "websocket":
		path := p.Path
		if path == "" {
			path = "/"
		}
		outbound["transport"] = map[string]any{
			"type": "ws",
			"path": path,
		}
	case "grpc":
		serviceName := p.Path
		if serviceName == "" {
			serviceName = "GunService"
		}
		outbound["transport"] = map[string]any{
			"type":         "grpc",
			"service_name": serviceName,
		}
	}

	if p.Plugin != "" {
		outbound["plugin"] = p.Plugin
		outbound["plugin_opts"] = p.PluginOpts
	}

	return outbound
}

func directOutbound() map[string]any {
	return map[string]any{
		"type": "direct",
		"tag":  "direct",
	}
}

// substitute walks the document tree and replaces every string value equal
// to the placeholder with the resolved outbound tag.
func substitute(node any, tag string) {
	switch v := node.(type) {
	case map[string]any:
		for key, child := range v {
			if s, ok := child.(string); ok {
				if s == placeholder {
					v[key] = tag
				}
				continue
			}
			substitute(child, tag)
		}
	case []any:
		for i, child := range v {
			if s, ok := child.(string); ok {
				if s == placeholder {
					v[i] = tag
				}
				continue
			}
			substitute(child, tag)
		}
	}
}

func applyOverride(doc map[string]any, section string, override json.RawMessage) error {
	if len(override) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(override, &parsed); err != nil {
		return fmt.Errorf("%w: %s override: %w", domain.ErrInvalidTemplate, section, err)
	}
	doc[section] = parsed
	return nil
}
