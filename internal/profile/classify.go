package profile

// Status is the outcome of comparing a stored version against a Range.
type Status int

const (
	// Success means the repository can be opened as is.
	Success Status = iota
	// TooNew means the repository was written by a newer, incompatible library.
	TooNew
	// TooOld means the repository predates anything this library can upgrade.
	TooOld
	// UpgradeRequired means the repository must be upgraded before it is opened.
	UpgradeRequired
	// UpgradeRecommended means the repository can be opened but an upgrade exists.
	UpgradeRecommended
)

var statusNames = map[Status]string{
	Success:            "SUCCESS",
	TooNew:             "TOO_NEW",
	TooOld:             "TOO_OLD",
	UpgradeRequired:    "UPGRADE_REQUIRED",
	UpgradeRecommended: "UPGRADE_RECOMMENDED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Terminal reports whether the status rules out opening at any upgrade policy.
func (s Status) Terminal() bool {
	return s == TooNew || s == TooOld
}

// CanUpgrade reports whether the upgrade steps apply to this status.
func (s Status) CanUpgrade() bool {
	return s == UpgradeRequired || s == UpgradeRecommended
}

// Classify maps every (stored, supported) pair to exactly one Status.
//
// Rules, first match wins:
//  1. TooNew: stored major above Max, or same major with a newer write-compat.
//  2. TooOld: stored major below Min.
//  3. UpgradeRequired: stored below Min, or major/write-compat behind Max.
//  4. UpgradeRecommended: minor/sub behind Max.
//  5. Success.
func Classify(stored Version, supported Range) Status {
	max, min := supported.Max, supported.Min

	if stored.Major > max.Major ||
		(stored.Major == max.Major && stored.WriteCompat > max.WriteCompat) {
		return TooNew
	}
	if stored.Major < min.Major {
		return TooOld
	}
	if stored.Less(min) || stored.Major < max.Major || stored.WriteCompat < max.WriteCompat {
		return UpgradeRequired
	}
	if stored.Minor < max.Minor || (stored.Minor == max.Minor && stored.Sub < max.Sub) {
		return UpgradeRecommended
	}
	return Success
}
