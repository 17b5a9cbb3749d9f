package template

// DefaultTemplateID is the skeleton used when a share names no template or
// an unknown one.
const DefaultTemplateID = "default-singbox"

var skeletons = map[string]string{
	"default-singbox":  defaultSingboxTemplate,
	"china-optimized":  chinaOptimizedTemplate,
	"global-optimized": globalOptimizedTemplate,
	"minimal":          minimalTemplate,
}

// TemplateIDs returns the names of all builtin skeletons.
func TemplateIDs() []string {
	ids := make([]string, 0, len(skeletons))
	for id := range skeletons {
		ids = append(ids, id)
	}
	return ids
}

const defaultSingboxTemplate = `{
  "dns": {
    "servers": [
      {"tag": "dns-remote", "address": "https://1.1.1.1/dns-query", "detour": "PROXY_OUTBOUND"},
      {"tag": "dns-direct", "address": "223.5.5.5", "detour": "direct"},
      {"tag": "dns-local", "address": "local", "detour": "direct"}
    ],
    "rules": [
      {"outbound": "any", "server": "dns-direct"}
    ],
    "final": "dns-remote",
    "independent_cache": true
  },
  "inbounds": [
    {
      "type": "tun",
      "tag": "tun-in",
      "address": ["172.19.0.1/30"],
      "mtu": 9000,
      "auto_route": true,
      "strict_route": true,
      "stack": "mixed",
      "sniff": true
    }
  ],
  "outbounds": [
    {"type": "dns", "tag": "dns-out"}
  ],
  "route": {
    "rules": [
      {"protocol": "dns", "outbound": "dns-out"},
      {"ip_is_private": true, "outbound": "direct"}
    ],
    "final": "PROXY_OUTBOUND",
    "auto_detect_interface": true
  },
  "experimental": {
    "cache_file": {"enabled": true}
  }
}`

const chinaOptimizedTemplate = `{
  "dns": {
    "servers": [
      {"tag": "dns-remote", "address": "https://1.1.1.1/dns-query", "detour": "PROXY_OUTBOUND"},
      {"tag": "dns-china", "address": "https://223.5.5.5/dns-query", "detour": "direct"}
    ],
    "rules": [
      {"outbound": "any", "server": "dns-china"},
      {"geosite": "cn", "server": "dns-china"}
    ],
    "final": "dns-remote",
    "independent_cache": true
  },
  "inbounds": [
    {
      "type": "tun",
      "tag": "tun-in",
      "address": ["172.19.0.1/30"],
      "mtu": 9000,
      "auto_route": true,
      "strict_route": true,
      "stack": "mixed",
      "sniff": true
    }
  ],
  "outbounds": [
    {"type": "dns", "tag": "dns-out"},
    {"type": "block", "tag": "block"}
  ],
  "route": {
    "rules": [
      {"protocol": "dns", "outbound": "dns-out"},
      {"ip_is_private": true, "outbound": "direct"},
      {"geosite": "cn", "outbound": "direct"},
      {"geoip": ["cn", "private"], "outbound": "direct"}
    ],
    "final": "PROXY_OUTBOUND",
    "auto_detect_interface": true
  }
}`

const globalOptimizedTemplate = `{
  "dns": {
    "servers": [
      {"tag": "dns-remote", "address": "https://8.8.8.8/dns-query", "detour": "PROXY_OUTBOUND"}
    ],
    "rules": [],
    "final": "PROXY_OUTBOUND",
    "independent_cache": true
  },
  "inbounds": [
    {
      "type": "tun",
      "tag": "tun-in",
      "address": ["172.19.0.1/30"],
      "mtu": 9000,
      "auto_route": true,
      "strict_route": true,
      "stack": "mixed",
      "sniff": true
    }
  ],
  "outbounds": [
    {"type": "dns", "tag": "dns-out"}
  ],
  "route": {
    "rules": [
      {"protocol": "dns", "outbound": "dns-out"}
    ],
    "final": "PROXY_OUTBOUND",
    "auto_detect_interface": true
  }
}`

const minimalTemplate = `{
  "inbounds": [
    {
      "type": "tun",
      "tag": "tun-in",
      "address": ["172.19.0.1/30"],
      "auto_route": true,
      "stack": "mixed"
    }
  ],
  "outbounds": [],
  "route": {
    "rules": [],
    "final": "PROXY_OUTBOUND",
    "auto_detect_interface": true
  }
}`
