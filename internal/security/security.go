package security

import (
	"path/filepath"
	"strings"

	"mediawiper/internal/apperr"
	"mediawiper/internal/config"
)

// CheckTarget запрещает удаление в корне файловой системы и в защищённых каталогах.
// Защищённым считается и каталог, внутри которого лежит защищённый путь.
func CheckTarget(cfg *config.Config, dir string) error {
	if cfg == nil {
		cfg = config.Default()
	}

	target, err := resolve(dir)
	if err != nil {
		return apperr.Configf("некорректный путь %s: %v", dir, err)
	}

	if IsRoot(target) {
		return apperr.Configf("удаление в корне файловой системы запрещено: %s", target)
	}

	for _, p := range cfg.Security.ProtectedPaths {
		protected, err := resolve(p)
		if err != nil {
			continue
		}
		if within(target, protected) || within(protected, target) {
			return apperr.Configf("каталог %s защищён (%s)", target, p)
		}
	}

	return nil
}

// IsRoot проверяет, что путь является корнем тома
func IsRoot(path string) bool {
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == clean
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// within true, если path совпадает с base или лежит внутри него
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
