package model

// Severity represents how urgently an audit finding needs attention
// before the migrated site can be published.
type Severity int

const (
	// SeverityInfo indicates informational findings that need no action.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues such as camera model metadata.
	SeverityLow

	// SeverityMedium indicates issues that break the goal of a
	// self-contained site or leak personal data of limited value.
	SeverityMedium

	// SeverityHigh indicates broken pages or sensitive metadata.
	SeverityHigh

	// SeverityCritical is reserved for findings that make the site unusable.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Audit finding types.
const (
	FindingRemoteImage    = "remote_image"
	FindingRemoteFileLink = "remote_file_link"
	FindingMissingAsset   = "missing_asset"
	FindingUnreadablePage = "unreadable_page"
	FindingExifGPS        = "exif_gps"
	FindingExifSerial     = "exif_serial_number"
	FindingExifAuthor     = "exif_author"
	FindingExifCamera     = "exif_camera"
)

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
var findingInfoMapping = map[string]FindingInfo{
	FindingMissingAsset: {
		Severity:       SeverityHigh,
		Impact:         "The page references a local asset that does not exist, so it renders a broken image or link.",
		Recommendation: "Re-run localize for the page, or restore the file under the assets directory.",
	},
	FindingExifGPS: {
		Severity:       SeverityHigh,
		Impact:         "The image carries GPS coordinates that reveal where the photo was taken.",
		Recommendation: "Strip EXIF metadata from the image before publishing.",
	},
	FindingRemoteImage: {
		Severity:       SeverityMedium,
		Impact:         "The image still loads from the hosted site builder and will break once the hosting account is closed.",
		Recommendation: "Re-run localize and check the log for the failed download.",
	},
	FindingRemoteFileLink: {
		Severity:       SeverityMedium,
		Impact:         "The link still points at a file served by the hosted site builder.",
		Recommendation: "Re-run localize and check the log for the failed download.",
	},
	FindingExifSerial: {
		Severity:       SeverityMedium,
		Impact:         "The image carries the serial number of the camera body or lens.",
		Recommendation: "Strip EXIF metadata from the image before publishing.",
	},
	FindingExifAuthor: {
		Severity:       SeverityMedium,
		Impact:         "The image names its author or copyright holder in metadata.",
		Recommendation: "Confirm the attribution is intended, or strip EXIF metadata.",
	},
	FindingExifCamera: {
		Severity:       SeverityLow,
		Impact:         "The image records the camera make, model or editing software.",
		Recommendation: "No action needed unless the equipment should stay private.",
	},
	FindingUnreadablePage: {
		Severity:       SeverityLow,
		Impact:         "The page could not be read or parsed, so it was not audited.",
		Recommendation: "Check file permissions and encoding of the page.",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding.",
	}
}
