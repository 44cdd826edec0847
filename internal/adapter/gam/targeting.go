package gam

import (
	"fmt"

	"github.com/avct/uasurfer"
)

// ManagedSignals is the set of targeting signals Google Ad Manager derives
// from the platform itself rather than accepting from the buyer. Device,
// OS, and browser are managed_only on this adapter: a buyer cannot set
// them directly, but the adapter still needs to resolve them (from a
// request's User-Agent, when one is available) to report what was
// actually served against.
type ManagedSignals struct {
	DeviceType string
	OS         string
	Browser    string
	IsBot      bool
}

// ResolveManagedSignals parses a raw User-Agent string into the managed-only
// device/OS/browser signals GAM reports back on delivery, independent of
// anything the buyer requested in the overlay.
func ResolveManagedSignals(uaString string) ManagedSignals {
	return resolveManagedSignals(uaString)
}

// resolveManagedSignals parses a raw User-Agent string into ManagedSignals.
func resolveManagedSignals(uaString string) ManagedSignals {
	u := uasurfer.Parse(uaString)

	var deviceType string
	switch u.DeviceType {
	case uasurfer.DeviceComputer:
		deviceType = "desktop"
	case uasurfer.DevicePhone:
		deviceType = "mobile"
	case uasurfer.DeviceTablet:
		deviceType = "tablet"
	default:
		deviceType = "other"
	}

	osName := fmt.Sprintf("%s %s", u.OS.Platform.String(), u.OS.Name.String())
	ov := u.OS.Version
	osVersion := fmt.Sprintf("%d.%d.%d", ov.Major, ov.Minor, ov.Patch)
	fullOS := fmt.Sprintf("%s %s", osName, osVersion)

	browserName := u.Browser.Name.String()
	bv := u.Browser.Version
	browserVersion := fmt.Sprintf("%d.%d.%d", bv.Major, bv.Minor, bv.Patch)
	fullBrowser := fmt.Sprintf("%s %s", browserName, browserVersion)

	return ManagedSignals{
		DeviceType: deviceType,
		OS:         fullOS,
		Browser:    fullBrowser,
		IsBot:      u.IsBot(),
	}
}
