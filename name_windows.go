//go:build windows

package ipcsem

// globalPrefix puts the object in the namespace shared by all sessions.
const globalPrefix = `Global\`

// objectName returns `Global\<sanitized>-<hash>`, well under the 260 unit
// limit on kernel object names.
func objectName(name string) string {
	return globalPrefix + resolvedFragment(name)
}

func resolvedName(name string, _ Options) (string, error) {
	return objectName(name), nil
}
