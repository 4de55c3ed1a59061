package article

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 80

var numericIDRe = regexp.MustCompile(`^\d{6,}$`)

// CanonicalURL normalizes an article link so that the same article always
// maps to the same index key: lower-case host without a default port, no
// query string, no fragment, and a trailing slash on directory-style paths.
// Hosts are otherwise kept as given, so www and bare hosts stay distinct.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}

	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = directoryPath(u.Path)
	u.RawPath = ""

	return u.String(), nil
}

// directoryPath appends "/" unless the last segment names a file.
func directoryPath(p string) string {
	switch {
	case p == "":
		return "/"
	case strings.HasSuffix(p, "/"), strings.Contains(path.Base(p), "."):
		return p
	default:
		return p + "/"
	}
}

// Filename derives the on-disk file name (without directory) for the
// article at rawURL. Paths carrying a numeric article id produce
// "<id>_<slug>.json"; anything else gets a hash suffix to stay unique.
func Filename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "article_" + shortHash(rawURL) + ".json"
	}

	var id, slug string
	for _, segment := range strings.Split(u.Path, "/") {
		if segment == "" {
			continue
		}
		if id == "" && numericIDRe.MatchString(segment) {
			id = segment
			continue
		}
		if !isDigits(segment) {
			slug = segment
		}
	}
	slug = Slug(slug)

	switch {
	case id != "" && slug != "":
		return id + "_" + slug + ".json"
	case id != "":
		return id + ".json"
	case slug != "":
		return slug + "_" + shortHash(rawURL) + ".json"
	default:
		return "article_" + shortHash(rawURL) + ".json"
	}
}

// AltFilename is the file name used when Filename(rawURL) is already taken
// by a record for a different URL, such as the same article path on
// another host.
func AltFilename(rawURL string) string {
	name := strings.TrimSuffix(Filename(rawURL), ".json")
	return name + "_" + shortHash(rawURL) + ".json"
}

// Slug folds s to lower-case ASCII letters and digits separated by single
// underscores, dropping accents.
func Slug(s string) string {
	fold := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	out := b.String()
	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "_")
	}
	return out
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:10]
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
