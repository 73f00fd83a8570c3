package apperr

import "time"

func ConnectionFailed(reason string, cause error) *Error {
	return &Error{Kind: KindConnectionFailed, Reason: reason, Err: cause}
}

func DeviceDisconnected(deviceID string) *Error {
	return &Error{Kind: KindDeviceDisconnected, Subject: deviceID}
}

func CommandFailed(command, reason string, cause error) *Error {
	return &Error{Kind: KindCommandFailed, Command: command, Reason: reason, Err: cause}
}

func DataCorrupted(context string) *Error {
	return &Error{Kind: KindDataCorrupted, Reason: context}
}

func Timeout(operation string, d time.Duration) *Error {
	return &Error{Kind: KindTimeout, Subject: operation, Duration: d}
}

func HardwareAccessDenied(feature string, cause error) *Error {
	return &Error{Kind: KindHardwareAccessDenied, Subject: feature, Err: cause}
}

func PermissionRequired(permission string) *Error {
	return &Error{Kind: KindPermissionRequired, Subject: permission}
}

func ResourceConstraint(resource, limit string) *Error {
	return &Error{Kind: KindResourceConstraint, Subject: resource, Limit: limit}
}

func InvalidDeviceState(expected, actual string) *Error {
	return &Error{Kind: KindInvalidDeviceState, Expected: expected, Actual: actual}
}

func SessionCreationFailed(reason string) *Error {
	return &Error{Kind: KindSessionCreationFailed, Reason: reason}
}

func InvalidSession(sessionID string) *Error {
	return &Error{Kind: KindInvalidSession, Subject: sessionID}
}

func SessionStateMismatch(expected, actual string) *Error {
	return &Error{Kind: KindSessionStateMismatch, Expected: expected, Actual: actual}
}

func DeviceNotReady(deviceID, reason string) *Error {
	return &Error{Kind: KindDeviceNotReady, Subject: deviceID, Reason: reason}
}

func StorageFailed(path, reason string) *Error {
	return &Error{Kind: KindStorageFailed, Subject: path, Reason: reason}
}

func FileCorrupted(path string) *Error {
	return &Error{Kind: KindFileCorrupted, Subject: path}
}

func TransferInterrupted(file string, progress float64) *Error {
	return &Error{Kind: KindTransferInterrupted, Subject: file, Progress: progress}
}

func SynchronizationMismatch(details string) *Error {
	return &Error{Kind: KindSynchronizationMismatch, Reason: details}
}
