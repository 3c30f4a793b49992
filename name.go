package ipcsem

import (
	"encoding/binary"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// nameSalt keys the name hash. Changing it, or the hash, changes every resolved
// key and breaks interoperability with semaphores created by earlier versions.
const nameSalt = "ipcsem"

const maxSanitized = 200

// sanitizeName keeps only the ASCII letters and digits of name.
func sanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// mixName hashes the full name with a keyed 64-bit BLAKE2b.
func mixName(name string) uint64 {
	h, err := blake2b.New(8, []byte(nameSalt))
	if err != nil {
		// Only reachable with an invalid size or an oversized key.
		panic(err)
	}
	h.Write([]byte(name))
	return binary.BigEndian.Uint64(h.Sum(nil))
}

// resolvedFragment returns "<sanitized>-<hash>". Names that sanitize to the same
// text still differ by their hash suffix. The sanitized part is cut to
// maxSanitized bytes so the fragment fits in a file or kernel object name.
func resolvedFragment(name string) string {
	frag := sanitizeName(name)
	if len(frag) > maxSanitized {
		frag = frag[:maxSanitized]
	}
	return frag + "-" + strconv.FormatUint(mixName(name), 10)
}

// ResolveKey returns the platform identifier that name resolves to: the decimal
// System V key on Unix, the kernel object name on Windows. The result is stable
// across processes and restarts on the same host. On Unix, resolving creates the
// key file if it does not exist yet.
func ResolveKey(name string) (string, error) {
	return ResolveKeyWithOptions(name, nil)
}

// ResolveKeyWithOptions is ResolveKey using the key directory from opts.
func ResolveKeyWithOptions(name string, opts *Options) (string, error) {
	o := opts.withDefaults()
	key, err := resolvedName(name, o)
	if err != nil {
		return "", &OpError{Op: "resolve", Name: name, Err: err}
	}
	return key, nil
}
