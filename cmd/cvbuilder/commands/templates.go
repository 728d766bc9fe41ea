package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"git.home.luguber.info/inful/cvbuilder/internal/catalog"
	"git.home.luguber.info/inful/cvbuilder/internal/fields"
)

// TemplatesCmd implements the 'templates' command.
type TemplatesCmd struct{}

func (t *TemplatesCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	cat, err := catalog.Load(catalog.Options{OverrideDir: cfg.TemplateDir(), MaxItems: cfg.Limits})
	if err != nil {
		return err
	}
	printCatalog(os.Stdout, cat)
	return nil
}

func printCatalog(w io.Writer, cat *catalog.Catalog) {
	for _, name := range cat.Types() {
		entry, _ := cat.Lookup(name)
		var sources []string
		for _, format := range fields.AllFormats {
			src, ok := entry.Source(format)
			if !ok {
				continue
			}
			sources = append(sources, fmt.Sprintf("%s=%s:%s", format, src.Origin, src.Path))
		}
		if len(sources) == 0 {
			sources = append(sources, "-")
		}
		_, _ = fmt.Fprintf(w, "%-14s %-10s %s\n", name, entry.Kind, strings.Join(sources, " "))
	}
}
