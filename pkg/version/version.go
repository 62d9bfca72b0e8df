package version

import (
	"strconv"
	"strings"
)

// Compare returns -1, 0 or 1 ordering two plugin version strings.
//
// Ordering rules:
//   - a leading "v" and any build metadata after "+" are ignored
//   - dot-separated release components are compared numerically, with the
//     shorter version padded with zeros ("1.2" == "1.2.0")
//   - a pre-release suffix after "-" sorts below the plain release
//     ("2.0.0-beta" < "2.0.0")
//   - pre-release identifiers are compared numerically when both are numeric,
//     byte-wise otherwise; a longer identifier list sorts higher when the
//     shared prefix is equal
//
// Non-numeric release components compare byte-wise, so malformed versions
// still get a stable total order instead of an error.
func Compare(a, b string) int {
	aRel, aPre := split(a)
	bRel, bPre := split(b)

	if c := compareIdentifiers(aRel, bRel, true); c != 0 {
		return c
	}

	// Equal release: absence of a pre-release suffix sorts highest.
	switch {
	case len(aPre) == 0 && len(bPre) == 0:
		return 0
	case len(aPre) == 0:
		return 1
	case len(bPre) == 0:
		return -1
	}

	return compareIdentifiers(aPre, bPre, false)
}

// IsNewer reports whether candidate is strictly newer than installed.
func IsNewer(candidate, installed string) bool {
	return Compare(candidate, installed) > 0
}

// split separates a version string into release and pre-release identifiers.
func split(v string) (release, pre []string) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "v")
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	if i := strings.IndexByte(v, '-'); i >= 0 {
		pre = strings.Split(v[i+1:], ".")
		v = v[:i]
	}
	return strings.Split(v, "."), pre
}

// compareIdentifiers compares two identifier lists element-wise. In release
// position missing components count as "0"; in pre-release position a longer
// list sorts higher once the shared prefix is equal.
func compareIdentifiers(a, b []string, release bool) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		av, bv := "0", "0"
		if i < len(a) {
			av = a[i]
		} else if !release {
			return -1
		}
		if i < len(b) {
			bv = b[i]
		} else if !release {
			return 1
		}

		if c := compareIdentifier(av, bv); c != 0 {
			return c
		}
	}

	return 0
}

func compareIdentifier(a, b string) int {
	an, aok := parseNum(a)
	bn, bok := parseNum(b)

	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aok:
		// Numeric identifiers sort below alphanumeric ones.
		return -1
	case bok:
		return 1
	}

	return strings.Compare(a, b)
}

func parseNum(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
