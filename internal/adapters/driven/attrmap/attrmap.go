// Package attrmap loads attribute catalogs from a Shibboleth SP
// attribute-map.xml, so a deployment can keep this module and its front-end
// agent pointed at one mapping file instead of maintaining two.
package attrmap

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"

	"github.com/philiph/caddy-shib-claims/internal/core/domain"
)

// Parse extracts an attribute catalog from attribute-map.xml content.
//
// Each <Attribute> element becomes one descriptor: the "id" attribute is
// the descriptor ID (that is the name the agent exports), and the first
// alias from "aliases" becomes the display name. An element without an "id"
// falls back to its "name": a known OID resolves to its friendly name, a
// plain name is used as-is, and urn:-style names this module cannot resolve
// are skipped, matching the agent's own behavior of ignoring entries it
// cannot map. Duplicate IDs keep the first occurrence.
func Parse(data []byte) (domain.AttributeCatalog, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, domain.RulesError("parse attribute map XML", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, domain.RulesError("attribute map has no root element", nil)
	}
	if root.Tag != "Attributes" {
		return nil, domain.RulesError(fmt.Sprintf("attribute map root element is <%s>, want <Attributes>", root.Tag), nil)
	}

	var catalog domain.AttributeCatalog
	for _, el := range root.SelectElements("Attribute") {
		id := el.SelectAttrValue("id", "")
		if id == "" {
			_, friendly := domain.ResolveAttributeName(el.SelectAttrValue("name", ""))
			if friendly == "" || strings.HasPrefix(friendly, "urn:") {
				continue
			}
			id = friendly
		}

		displayName := ""
		if aliases := strings.Fields(el.SelectAttrValue("aliases", "")); len(aliases) > 0 {
			displayName = aliases[0]
		}

		catalog = append(catalog, domain.AttributeDescriptor{ID: id, DisplayName: displayName})
	}

	if len(catalog) == 0 {
		return nil, domain.RulesError("attribute map declares no usable attributes", nil)
	}

	return catalog.Dedupe(), nil
}

// ParseFile reads and parses an attribute-map.xml from disk.
func ParseFile(path string) (domain.AttributeCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.RulesError(fmt.Sprintf("read attribute map %s", path), err)
	}
	return Parse(data)
}
