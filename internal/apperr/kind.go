// Package apperr defines the closed set of failures that flow through the
// recovery pipeline, grouped in four families, together with their
// classification: description, suggestion, recoverability, user
// notification and severity.
package apperr

type Family int

// FamilyUnknown is reported for a Kind outside the closed set.
const FamilyUnknown Family = -1

const (
	FamilyNetwork Family = iota
	FamilyDevice
	FamilySession
	FamilyDataCollection
)

func (f Family) String() string {
	switch f {
	case FamilyNetwork:
		return "network"
	case FamilyDevice:
		return "device"
	case FamilySession:
		return "session"
	case FamilyDataCollection:
		return "data_collection"
	default:
		return "unknown"
	}
}

// Kind identifies a failure. The set is closed; NumKinds bounds dispatch
// tables indexed by Kind.
type Kind int

const (
	// network
	KindConnectionFailed Kind = iota
	KindDeviceDisconnected
	KindCommandFailed
	KindDataCorrupted
	KindTimeout
	// device
	KindHardwareAccessDenied
	KindPermissionRequired
	KindResourceConstraint
	KindInvalidDeviceState
	// session
	KindSessionCreationFailed
	KindInvalidSession
	KindSessionStateMismatch
	KindDeviceNotReady
	// data collection
	KindStorageFailed
	KindFileCorrupted
	KindTransferInterrupted
	KindSynchronizationMismatch

	NumKinds
)

func (k Kind) Valid() bool { return k >= 0 && k < NumKinds }

func (k Kind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return classes[k].tag
}

func (k Kind) Family() Family {
	if !k.Valid() {
		return FamilyUnknown
	}
	return classes[k].family
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, NumKinds)
	for k := Kind(0); k < NumKinds; k++ {
		out = append(out, k)
	}
	return out
}

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityNotice
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityNotice:
		return "notice"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

type class struct {
	tag         string
	family      Family
	recoverable bool
	notify      bool
	severity    Severity
	suggestion  string
}

var classes = [NumKinds]class{
	KindConnectionFailed: {
		tag: "connectionFailed", family: FamilyNetwork,
		recoverable: true, notify: true, severity: SeverityError,
		suggestion: "Check your network connection and try again",
	},
	KindDeviceDisconnected: {
		tag: "deviceDisconnected", family: FamilyNetwork,
		recoverable: true, notify: true, severity: SeverityError,
		suggestion: "Wait for the device to reconnect or restart the application",
	},
	KindCommandFailed: {
		tag: "commandFailed", family: FamilyNetwork,
		recoverable: true, notify: false, severity: SeverityWarning,
		suggestion: "Try the operation again",
	},
	KindDataCorrupted: {
		tag: "dataCorrupted", family: FamilyNetwork,
		recoverable: false, notify: false, severity: SeverityCritical,
		suggestion: "The data may need to be recaptured",
	},
	KindTimeout: {
		tag: "timeout", family: FamilyNetwork,
		recoverable: true, notify: false, severity: SeverityWarning,
		suggestion: "Check network conditions and try again",
	},
	KindHardwareAccessDenied: {
		tag: "hardwareAccessDenied", family: FamilyDevice,
		recoverable: false, notify: true, severity: SeverityError,
		suggestion: "Check device settings and permissions",
	},
	KindPermissionRequired: {
		tag: "permissionRequired", family: FamilyDevice,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Grant the required permission in Settings",
	},
	KindResourceConstraint: {
		tag: "resourceConstraint", family: FamilyDevice,
		recoverable: true, notify: true, severity: SeverityWarning,
		suggestion: "Free up system resources or reduce quality settings",
	},
	KindInvalidDeviceState: {
		tag: "invalidDeviceState", family: FamilyDevice,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Restart the application to reset device state",
	},
	KindSessionCreationFailed: {
		tag: "sessionCreationFailed", family: FamilySession,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Ensure all devices are connected and try again",
	},
	KindInvalidSession: {
		tag: "invalidSession", family: FamilySession,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Rejoin the session or start a new one",
	},
	KindSessionStateMismatch: {
		tag: "sessionStateMismatch", family: FamilySession,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Synchronize with the control station",
	},
	KindDeviceNotReady: {
		tag: "deviceNotReady", family: FamilySession,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Wait for device initialization to complete",
	},
	KindStorageFailed: {
		tag: "storageFailed", family: FamilyDataCollection,
		recoverable: true, notify: true, severity: SeverityCritical,
		suggestion: "Check available storage space",
	},
	KindFileCorrupted: {
		tag: "fileCorrupted", family: FamilyDataCollection,
		recoverable: false, notify: true, severity: SeverityCritical,
		suggestion: "The file may need to be recaptured",
	},
	KindTransferInterrupted: {
		tag: "transferInterrupted", family: FamilyDataCollection,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "The transfer will automatically resume when possible",
	},
	KindSynchronizationMismatch: {
		tag: "synchronizationMismatch", family: FamilyDataCollection,
		recoverable: true, notify: true, severity: SeverityNotice,
		suggestion: "Resynchronize devices and try again",
	},
}
