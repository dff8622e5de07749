package release

import (
	"path/filepath"
	"strings"

	"github.com/bimcvcovid19i/relman/internal/artifact"
	"github.com/bimcvcovid19i/relman/internal/executor"
)

// render expands {placeholders} in a configured command. Values are shell
// quoted; {artifacts} expands to the quoted absolute artifact paths, or to an
// unquoted dist glob when no artifacts are known (dry runs).
func (p *Pipeline) render(tmpl string, arts []artifact.Artifact) string {
	artifacts := filepath.Join(executor.Quote(p.cfg.DistDir), "*")
	if len(arts) > 0 {
		paths := make([]string, 0, len(arts))
		for _, a := range arts {
			paths = append(paths, a.Path)
		}
		artifacts = executor.Quote(paths...)
	}
	r := strings.NewReplacer(
		"{package}", executor.Quote(p.cfg.Package),
		"{package_dir}", executor.Quote(p.cfg.PackageDir),
		"{dist}", executor.Quote(p.cfg.DistDir),
		"{build}", executor.Quote(p.cfg.BuildDir),
		"{repository}", executor.Quote(p.cfg.Repository),
		"{version}", executor.Quote(p.version),
		"{artifacts}", artifacts,
	)
	return r.Replace(tmpl)
}
