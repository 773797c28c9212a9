package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Root is the cache directory. Tests point it at a temp dir.
var Root = "cache"

// ContentSum returns the xxHash of content as a hex string. Rendered HTML is
// cached under id + content hash, so an edited post never serves a stale
// rendering: the key changes with the content.
func ContentSum(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

func pathFor(postID, sum string) string {
	return filepath.Join(Root, "posts", fmt.Sprintf("%s_%s.html", postID, sum))
}

// Write stores rendered HTML for a post.
func Write(postID, sum, html string) error {
	if err := os.MkdirAll(filepath.Join(Root, "posts"), 0755); err != nil {
		return err
	}
	return os.WriteFile(pathFor(postID, sum), []byte(html), 0644)
}

// Read returns the cached rendering if it exists and is not expired.
func Read(postID, sum string, maxAge time.Duration) (string, bool) {
	path := pathFor(postID, sum)

	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

// ClearPost removes every cached rendering of a post, regardless of content
// hash. Used on delete, where no new key will ever supersede the old ones.
func ClearPost(postID string) error {
	pattern := filepath.Join(Root, "posts", postID+"_*.html")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// ClearAll wipes the whole cache directory.
func ClearAll() error {
	return os.RemoveAll(filepath.Join(Root, "posts"))
}

// ClearOld removes cache files older than maxAge. Superseded renderings
// (old content hashes) are never read again, so this is the only thing that
// reclaims their space.
func ClearOld(maxAge time.Duration) error {
	root := filepath.Join(Root, "posts")
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil
	}

	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".html") {
			return nil
		}
		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}
		return nil
	})
}
