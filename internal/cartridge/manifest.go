package cartridge

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/wwcc-dale/zaphod/internal/logging"
	"github.com/wwcc-dale/zaphod/internal/services"
)

// ManifestFileName is the fixed name of the manifest document at the root of
// every cartridge archive.
const ManifestFileName = "imsmanifest.xml"

// Manifest is the parsed resource table and module forest of a cartridge.
// Resources preserves manifest document order; lookup by identifier goes
// through Resource.
type Manifest struct {
	Resources []ResourceItem
	Modules   []ModuleItem

	byIdentifier map[string]int
}

// Resource returns the resource with the given identifier.
func (m *Manifest) Resource(identifier string) (ResourceItem, bool) {
	idx, ok := m.byIdentifier[identifier]
	if !ok {
		return ResourceItem{}, false
	}
	return m.Resources[idx], true
}

// ParseManifest reads and parses imsmanifest.xml from the extraction root.
// A missing or unparsable manifest is fatal. Resources without an identifier
// are dropped; module titles fall back to the module identifier.
func ParseManifest(extractedDir string, logger *slog.Logger) (*Manifest, error) {
	logger = logging.NewComponentLogger(logger, "manifest")

	path := filepath.Join(extractedDir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "manifest", "parse", "read "+ManifestFileName, err)
	}
	root, err := parseXMLDocument(data)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "manifest", "parse", "decode "+ManifestFileName, err)
	}

	manifest := &Manifest{byIdentifier: make(map[string]int)}

	if resourcesElem := root.child(packagingNamespaces, "resources"); resourcesElem != nil {
		for _, resourceElem := range resourcesElem.children(packagingNamespaces, "resource") {
			resource, ok := parseResource(resourceElem)
			if !ok {
				continue
			}
			manifest.byIdentifier[resource.Identifier] = len(manifest.Resources)
			manifest.Resources = append(manifest.Resources, resource)
		}
	}

	itemTitles := make(map[string]string)
	manifest.Modules = parseModules(root, itemTitles)

	// Organization items carry the display titles; backfill them onto the
	// referenced resources so transforms prefer them over derived titles.
	for ref, title := range itemTitles {
		if idx, ok := manifest.byIdentifier[ref]; ok && manifest.Resources[idx].Title == "" {
			manifest.Resources[idx].Title = title
		}
	}

	logger.Info("manifest parsed",
		logging.Int("resources", len(manifest.Resources)),
		logging.Int("modules", len(manifest.Modules)))
	return manifest, nil
}

func parseResource(elem *xmlNode) (ResourceItem, bool) {
	identifier := elem.attr("identifier")
	if identifier == "" {
		return ResourceItem{}, false
	}
	resource := ResourceItem{
		Identifier: identifier,
		Type:       elem.attr("type"),
		Href:       elem.attr("href"),
	}
	for _, fileElem := range elem.children(packagingNamespaces, "file") {
		if href := fileElem.attr("href"); href != "" {
			resource.Files = append(resource.Files, href)
		}
	}
	return resource, true
}

// parseModules walks the first organization element's top-level items in
// document order. Each becomes a module whose content list is the
// identifierref of every nested item, collected recursively. Titles of
// referencing items are recorded into itemTitles.
func parseModules(root *xmlNode, itemTitles map[string]string) []ModuleItem {
	organizations := root.child(packagingNamespaces, "organizations")
	if organizations == nil {
		return nil
	}
	organization := organizations.child(packagingNamespaces, "organization")
	if organization == nil {
		return nil
	}

	var modules []ModuleItem
	for _, itemElem := range organization.children(packagingNamespaces, "item") {
		identifier := itemElem.attr("identifier")
		if identifier == "" {
			continue
		}
		module := ModuleItem{
			Identifier: identifier,
			Title:      text(itemElem.child(packagingNamespaces, "title"), identifier),
			Position:   len(modules),
		}
		collectItemRefs(itemElem, &module.Items, itemTitles)
		modules = append(modules, module)
	}
	return modules
}

func collectItemRefs(elem *xmlNode, refs *[]string, itemTitles map[string]string) {
	for _, child := range elem.children(packagingNamespaces, "item") {
		if ref := child.attr("identifierref"); ref != "" {
			*refs = append(*refs, ref)
			if title := text(child.child(packagingNamespaces, "title"), ""); title != "" {
				itemTitles[ref] = title
			}
		}
		collectItemRefs(child, refs, itemTitles)
	}
}
