package core

import (
	"encoding/binary"
	"net"
	"time"
)

func isIPv4(ip net.IP) bool {
	return ip.To4() != nil
}

func unixNanoToBytes(nanos int64) []byte {
	b := make([]byte, timestampLen)
	binary.BigEndian.PutUint64(b, uint64(nanos))
	return b
}

func bytesToUnixNano(b []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(b)))
}

// sleepOrStop waits for d unless a stop request arrives first. It reports whether it was stopped.
func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return isStopRequested(stop)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case <-stop:
		return true
	}
}

// isStopRequested reports whether stop has been closed, without blocking.
func isStopRequested(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}
