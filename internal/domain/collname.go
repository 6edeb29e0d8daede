package domain

import (
	"crypto/md5" //nolint:gosec // not cryptographic: stable collection-name suffix
	"encoding/hex"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	collNamePrefix  = "doc_"
	collNameMaxLen  = 63
	collBaseMaxLen  = 20
	collHashLen     = 8
	collBaseMinLen  = 3
)

// DeriveCollectionName maps a document filename to its vector store collection
// name. The function is pure: the same filename always yields the same
// collection name across process restarts, and distinct filenames stay
// distinct through the content-hash suffix even after truncation.
func DeriveCollectionName(filename string) string {
	sum := md5.Sum([]byte(filename)) //nolint:gosec
	hash := hex.EncodeToString(sum[:])[:collHashLen]

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	runes := []rune(base)
	if len(runes) > collBaseMaxLen {
		runes = runes[:collBaseMaxLen]
	}

	var b strings.Builder
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_")
	if len(name) < collBaseMinLen {
		name = collNamePrefix + name
	}

	coll := collNamePrefix + name + "_" + hash
	if len(coll) > collNameMaxLen {
		coll = coll[:collNameMaxLen-collHashLen-1] + "_" + hash
	}
	return coll
}
