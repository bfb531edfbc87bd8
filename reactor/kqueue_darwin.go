//go:build darwin

// kqueue backend, grounded in the same registration/wait shape as
// epoll_linux.go. kqueue carries the cookie natively in Kevent_t.Udata,
// so there is no analogue of epoll's cookie-storage pitfall here; read
// and write interest are tracked as two independent kevent filters
// (EVFILT_READ/EVFILT_WRITE) rather than one mask.
package reactor

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

type kqueueMultiplexer struct {
	kq int
}

// NewMultiplexer constructs the platform multiplexer (kqueue on Darwin).
func NewMultiplexer() (Multiplexer, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueMultiplexer{kq: fd}, nil
}

func (m *kqueueMultiplexer) changeList(fd int, interest Interest, cookie uint64, delete bool) []unix.Kevent_t {
	var flags uint16 = unix.EV_ADD | unix.EV_CLEAR
	if delete {
		flags = unix.EV_DELETE
	}
	udata := (*byte)(unsafe.Pointer(uintptr(cookie)))

	var out []unix.Kevent_t
	if delete || interest&InterestRead != 0 {
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_READ,
			Flags:  flags,
			Udata:  udata,
		})
	}
	if delete {
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
			Udata:  udata,
		})
	} else if interest&InterestWrite != 0 {
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  flags,
			Udata:  udata,
		})
	} else {
		// Drop write interest if it was previously armed. If it was never
		// armed the kernel reports ENOENT, which apply() ignores.
		out = append(out, unix.Kevent_t{
			Ident:  uint64(fd),
			Filter: unix.EVFILT_WRITE,
			Flags:  unix.EV_DELETE,
			Udata:  udata,
		})
	}
	return out
}

func (m *kqueueMultiplexer) apply(changes []unix.Kevent_t) error {
	_, err := unix.Kevent(m.kq, changes, nil, nil)
	// Register/Rearm with read-only interest always submits an
	// EVFILT_WRITE/EV_DELETE change to drop any previously-armed write
	// filter; when no write filter was ever added (the common case for a
	// freshly registered read-only fd) the kernel reports ENOENT here.
	// Treat it the same as Unregister does: benign.
	return ignoreENOENT(err)
}

func (m *kqueueMultiplexer) Register(fd int, interest Interest, cookie uint64) error {
	return m.apply(m.changeList(fd, interest, cookie, false))
}

func (m *kqueueMultiplexer) Rearm(fd int, interest Interest, cookie uint64) error {
	return m.apply(m.changeList(fd, interest, cookie, false))
}

func (m *kqueueMultiplexer) Unregister(fd int) error {
	return m.apply(m.changeList(fd, 0, 0, true))
}

func ignoreENOENT(err error) error {
	if err == unix.ENOENT {
		return nil
	}
	return err
}

func (m *kqueueMultiplexer) Wait(events []PollEvent, timeoutMs int) (int, error) {
	raw := make([]unix.Kevent_t, len(events))
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		ts = &t
	}
	n, err := unix.Kevent(m.kq, nil, raw, ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	// Coalesce read/write events that share an Ident+Udata into a single
	// PollEvent, matching epoll's combined-mask delivery shape.
	idx := map[uint64]int{}
	count := 0
	for i := 0; i < n; i++ {
		cookie := uint64(uintptr(unsafe.Pointer(raw[i].Udata)))
		pos, ok := idx[cookie]
		if !ok {
			pos = count
			idx[cookie] = pos
			events[pos] = PollEvent{Cookie: cookie}
			count++
		}
		switch raw[i].Filter {
		case unix.EVFILT_READ:
			events[pos].Readable = true
		case unix.EVFILT_WRITE:
			events[pos].Writable = true
		}
		if raw[i].Flags&unix.EV_EOF != 0 {
			events[pos].Error = true
		}
	}
	return count, nil
}

func (m *kqueueMultiplexer) Close() error {
	return unix.Close(m.kq)
}
