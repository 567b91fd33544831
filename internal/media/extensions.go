package media

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"mediawiper/internal/apperr"
)

// Category группа расширений
type Category string

const (
	CategoryVideo     Category = "video"
	CategoryAudio     Category = "audio"
	CategoryImages    Category = "images"
	CategoryDocuments Category = "documents"
)

var categories = map[Category][]string{
	CategoryVideo: {
		".mp4", ".avi", ".flv", ".wmv", ".mov", ".webm", ".mkv", ".f4v", ".vob", ".ogg",
		".gifv", ".amv", ".mpg", ".mp2", ".mpeg", ".mpe", ".mpv", ".m4v", ".3gp",
	},
	CategoryAudio: {".wav", ".aiff", ".mp3", ".aac", ".wma", ".ogg", ".flac"},
	CategoryImages: {
		".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp", ".svg",
	},
	CategoryDocuments: {
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt", ".rtf", ".odt",
	},
}

// DefaultCategories используются, когда расширения не заданы
var DefaultCategories = []Category{CategoryVideo, CategoryAudio}

// Categories возвращает известные категории в стабильном порядке
func Categories() []Category {
	return []Category{CategoryVideo, CategoryAudio, CategoryImages, CategoryDocuments}
}

// CategoryExtensions возвращает расширения категории
func CategoryExtensions(c Category) ([]string, error) {
	exts, ok := categories[c]
	if !ok {
		return nil, apperr.Configf("неизвестная категория файлов: %s", c)
	}
	out := make([]string, len(exts))
	copy(out, exts)
	return out, nil
}

// ParseCategory проверяет имя категории
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := categories[c]; !ok {
		return "", apperr.Configf("неизвестная категория файлов: %s", name)
	}
	return c, nil
}

// Set множество нормализованных расширений (".mp4")
type Set map[string]struct{}

// NewSet строит множество из уже нормализованных или сырых расширений
func NewSet(exts ...string) (Set, error) {
	s := make(Set, len(exts))
	for _, ext := range exts {
		n, err := Normalize(ext)
		if err != nil {
			return nil, err
		}
		s[n] = struct{}{}
	}
	return s, nil
}

// DefaultSet возвращает встроенный набор медиа-расширений
func DefaultSet() Set {
	s, _ := FromCategories(DefaultCategories...)
	return s
}

// FromCategories объединяет расширения нескольких категорий
func FromCategories(cs ...Category) (Set, error) {
	s := make(Set)
	for _, c := range cs {
		exts, err := CategoryExtensions(c)
		if err != nil {
			return nil, err
		}
		for _, ext := range exts {
			s[ext] = struct{}{}
		}
	}
	return s, nil
}

// ParseList разбирает список вида "mp4, .MKV,avi"
func ParseList(list string) (Set, error) {
	s := make(Set)
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		n, err := Normalize(item)
		if err != nil {
			return nil, err
		}
		s[n] = struct{}{}
	}
	return s, nil
}

// Normalize приводит расширение к виду ".ext" в нижнем регистре
func Normalize(ext string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(ext))
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	if e == "." || strings.HasPrefix(e, "..") || strings.HasSuffix(e, ".") {
		return "", apperr.Configf("некорректное расширение: %q", ext)
	}
	if strings.ContainsAny(e, `/\ *?`+"\t") {
		return "", apperr.Configf("некорректное расширение: %q", ext)
	}
	return e, nil
}

// Union возвращает объединение множеств
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for ext := range s {
		out[ext] = struct{}{}
	}
	for ext := range other {
		out[ext] = struct{}{}
	}
	return out
}

// Clone копирует множество
func (s Set) Clone() Set {
	return s.Union(nil)
}

// Sorted возвращает расширения по алфавиту
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (s Set) String() string {
	return strings.Join(s.Sorted(), ",")
}

// MarshalYAML сохраняет множество как отсортированный список
func (s Set) MarshalYAML() (interface{}, error) {
	return s.Sorted(), nil
}

// MarshalJSON сохраняет множество как отсортированный список
func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalYAML читает список расширений
func (s *Set) UnmarshalYAML(value *yaml.Node) error {
	var list []string
	if err := value.Decode(&list); err != nil {
		return fmt.Errorf("список расширений: %w", err)
	}
	parsed, err := NewSet(list...)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Matches проверяет, относится ли путь к медиа по расширению.
// Сравнение без учёта регистра; пустое множество означает набор по умолчанию.
// Скрытый файл с расширением (".clip.mp4") подходит, файл ".mp4" нет.
func Matches(path string, set Set) bool {
	if len(set) == 0 {
		set = defaultSet
	}
	// ведущие точки не начинают расширение: ".mp4" это имя без расширения
	name := strings.TrimLeft(strings.ToLower(filepath.Base(path)), ".")
	if _, ok := set[filepath.Ext(name)]; ok {
		return true
	}
	// составные расширения вида ".tar.gz"
	for ext := range set {
		if strings.Count(ext, ".") > 1 && strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

var defaultSet = DefaultSet()
