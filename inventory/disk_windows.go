//go:build windows

package inventory

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-kit/log/level"
	"github.com/yusufpapurcu/wmi"
)

type win32DiskDrive struct {
	DeviceID      string
	PNPDeviceID   string
	InterfaceType string
	MediaType     string
	Model         string
	Index         uint32
	SerialNumber  string
}

type win32DiskDriveToDiskPartition struct {
	Antecedent string
	Dependent  string
}

type win32LogicalDiskToPartition struct {
	Antecedent string
	Dependent  string
}

func queryUSBDrives() ([]win32DiskDrive, error) {
	var drives []win32DiskDrive
	query := "SELECT DeviceID, PNPDeviceID, InterfaceType, MediaType, Model, Index, SerialNumber " +
		"FROM Win32_DiskDrive WHERE InterfaceType = 'USB'"
	if err := wmi.Query(query, &drives); err != nil {
		return nil, err
	}
	return drives, nil
}

// enrichDisks attaches physical drive records to mass storage devices.
// The drive's PNP id embeds the device serial number, which is the only
// stable join key between the two namespaces. WMI failures degrade to
// devices without disk data.
func (m *manager) enrichDisks(devices []Device) {
	needed := false
	for _, d := range devices {
		if d.Disk == nil && d.SerialNumber != "" &&
			(d.InterfaceClass == 0x08 || d.DeviceClass == 0x08) {
			needed = true
			break
		}
	}
	if !needed {
		return
	}

	drives, err := queryUSBDrives()
	if err != nil {
		level.Warn(m.logger).Log("msg", "disk drive query failed", "err", err)
		return
	}
	letters, err := buildDriveLetterMap()
	if err != nil {
		level.Warn(m.logger).Log("msg", "drive letter map failed", "err", err)
	}

	for i := range devices {
		d := &devices[i]
		if d.SerialNumber == "" || (d.InterfaceClass != 0x08 && d.DeviceClass != 0x08) {
			continue
		}
		serial := strings.ToUpper(d.SerialNumber)
		for _, drv := range drives {
			if !strings.Contains(strings.ToUpper(drv.PNPDeviceID), serial) &&
				!strings.EqualFold(strings.TrimSpace(drv.SerialNumber), d.SerialNumber) {
				continue
			}
			d.Disk = &DiskInfo{
				Model:        drv.Model,
				Index:        drv.Index,
				MediaType:    drv.MediaType,
				DriveLetters: letters[drv.Index],
			}
			break
		}
	}
}

// buildDriveLetterMap joins physical drives to their logical drive letters
// through the partition association classes.
func buildDriveLetterMap() (map[uint32][]string, error) {
	var driveToPartition []win32DiskDriveToDiskPartition
	if err := wmi.Query("SELECT Antecedent, Dependent FROM Win32_DiskDriveToDiskPartition", &driveToPartition); err != nil {
		return nil, err
	}

	var partitionToLogical []win32LogicalDiskToPartition
	if err := wmi.Query("SELECT Antecedent, Dependent FROM Win32_LogicalDiskToPartition", &partitionToLogical); err != nil {
		return nil, err
	}

	partitionToLetter := make(map[string]string)
	for _, p := range partitionToLogical {
		letter := extractDriveLetter(p.Dependent)
		partition := extractPartitionName(p.Antecedent)
		if letter != "" && partition != "" {
			partitionToLetter[partition] = letter
		}
	}

	result := make(map[uint32][]string)
	for _, d := range driveToPartition {
		driveIndex := extractDriveIndex(d.Antecedent)
		partition := extractPartitionName(d.Dependent)
		if driveIndex >= 0 && partition != "" {
			if letter, ok := partitionToLetter[partition]; ok {
				result[uint32(driveIndex)] = append(result[uint32(driveIndex)], letter)
			}
		}
	}
	return result, nil
}

var (
	driveLetterRe   = regexp.MustCompile(`DeviceID="([A-Z]:)"`)
	partitionRe     = regexp.MustCompile(`DeviceID="(Disk #\d+, Partition #\d+)"`)
	physicalDriveRe = regexp.MustCompile(`PHYSICALDRIVE(\d+)`)
)

func extractDriveLetter(wmiPath string) string {
	if m := driveLetterRe.FindStringSubmatch(wmiPath); len(m) >= 2 {
		return m[1]
	}
	return ""
}

func extractPartitionName(wmiPath string) string {
	if m := partitionRe.FindStringSubmatch(wmiPath); len(m) >= 2 {
		return m[1]
	}
	return ""
}

func extractDriveIndex(wmiPath string) int {
	if m := physicalDriveRe.FindStringSubmatch(strings.ToUpper(wmiPath)); len(m) >= 2 {
		if idx, err := strconv.Atoi(m[1]); err == nil {
			return idx
		}
	}
	return -1
}
