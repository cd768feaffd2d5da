package config

import "github.com/compassradar/extension/internal/util"

// ViperSource hands the current configuration to per-tick consumers.
// It reads viper on every call so edits made through the settings UI
// take effect on the next frame without a reload.
type ViperSource struct{}

// Detection returns the detection settings.
func (ViperSource) Detection() DetectionConfig { return GetDetectionConfig() }

// Island returns the island policy settings.
func (ViperSource) Island() IslandConfig { return GetIslandConfig() }

// Notify returns the notification settings.
func (ViperSource) Notify() NotifyConfig { return GetNotifyConfig() }

// IsOutdated reports whether the loaded file was written by an older release.
func IsOutdated() bool {
	return util.CompareVersion(GetString("configVersion"), CurrentVersion) < 0
}
