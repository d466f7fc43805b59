package caddyshibclaims

import (
	"strings"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
)

// parseCaddyfile sets up the handler from Caddyfile tokens.
//
// Syntax:
//
//	shib_claims {
//	    issuer <label>
//	    source headers|environ|fcgi
//	    mode pass|require
//	    login_url <url>
//	    header_prefix <prefix>
//	    session_header <name>
//	    session_cookie_prefix <prefix>
//	    session_variable <name>
//	    attribute_map <path>
//	    rules_file <path>
//	    rules_reload_interval <duration>
//	    attribute <id> [<display name>]
//	    claim <attribute> <claim> [<transform> [<separator>]]
//	    forward_claim <claim> <header> [<separator>]
//	    claim_header_prefix <prefix>
//	    strip_headers on|off
//	    metrics enabled|off
//	}
func parseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var s ShibClaims
	err := s.UnmarshalCaddyfile(h.Dispenser)
	return &s, err
}

// UnmarshalCaddyfile implements caddyfile.Unmarshaler.
func (s *ShibClaims) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	d.Next() // consume directive name

	for d.NextBlock(0) {
		switch d.Val() {
		case "issuer":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.Issuer = d.Val()

		case "source":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.Source = d.Val()

		case "mode":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.Mode = d.Val()

		case "login_url":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.LoginURL = d.Val()

		case "header_prefix":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.HeaderPrefix = d.Val()

		case "session_header":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.SessionHeader = d.Val()

		case "session_cookie_prefix":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.SessionCookiePrefix = d.Val()

		case "session_variable":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.SessionVariable = d.Val()

		case "attribute_map":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.AttributeMapFile = d.Val()

		case "rules_file":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.RulesFile = d.Val()

		case "rules_reload_interval":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.RulesReloadInterval = d.Val()

		case "attribute":
			args := d.RemainingArgs()
			if len(args) == 0 {
				return d.ArgErr()
			}
			s.Attributes = append(s.Attributes, AttributeConfig{
				ID:          args[0],
				DisplayName: strings.Join(args[1:], " "),
			})

		case "claim":
			args := d.RemainingArgs()
			if len(args) < 2 || len(args) > 4 {
				return d.Errf("claim expects <attribute> <claim> [<transform> [<separator>]], got %d args", len(args))
			}
			rule := ClaimRule{Attribute: args[0], Claim: args[1]}
			if len(args) > 2 {
				rule.Transform = args[2]
			}
			if len(args) > 3 {
				rule.Separator = args[3]
			}
			s.Claims = append(s.Claims, rule)

		case "forward_claim":
			args := d.RemainingArgs()
			if len(args) < 2 || len(args) > 3 {
				return d.Errf("forward_claim expects <claim> <header> [<separator>], got %d args", len(args))
			}
			mapping := ClaimHeaderMapping{Claim: args[0], HeaderName: args[1]}
			if len(args) > 2 {
				mapping.Separator = args[2]
			}
			s.ForwardClaims = append(s.ForwardClaims, mapping)

		case "claim_header_prefix":
			if !d.NextArg() {
				return d.ArgErr()
			}
			s.ClaimHeaderPrefix = d.Val()

		case "strip_headers":
			if !d.NextArg() {
				return d.ArgErr()
			}
			switch d.Val() {
			case "on", "enabled":
				s.StripHeaders = boolPtr(true)
			case "off", "disabled":
				s.StripHeaders = boolPtr(false)
			default:
				return d.Errf("strip_headers must be 'on' or 'off', got %q", d.Val())
			}

		case "metrics":
			if !d.NextArg() {
				return d.ArgErr()
			}
			switch d.Val() {
			case "enabled", "on":
				s.MetricsEnabled = true
			case "disabled", "off":
				s.MetricsEnabled = false
			default:
				return d.Errf("metrics must be 'enabled' or 'off', got %q", d.Val())
			}

		default:
			return d.Errf("unrecognized subdirective: %s", d.Val())
		}
	}

	s.Config.SetDefaults()
	return nil
}
