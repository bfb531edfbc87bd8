//go:build linux

// A prior cookie-storage approach seen elsewhere writes the 8-byte
// userdata via `*(*uintptr)(unsafe.Pointer(&event.Pad)) = udata`, which
// aliases only the trailing 4 bytes of the epoll_data union on a
// 64-bit EpollEvent (Fd is the first 4 bytes, Pad the last 4), silently
// truncating every cookie above 2^32. This implementation instead
// treats Fd and Pad as the two 32-bit halves of one 8-byte union, per
// the kernel's actual struct epoll_event layout, and stores/reads the
// full 64-bit cookie through that union directly.
package reactor

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/unix"
)

type epollMultiplexer struct {
	epfd int
}

// NewMultiplexer constructs the platform multiplexer (epoll on Linux).
func NewMultiplexer() (Multiplexer, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &epollMultiplexer{epfd: fd}, nil
}

func interestToEpollMask(i Interest) uint32 {
	mask := uint32(unix.EPOLLET)
	if i&InterestRead != 0 {
		mask |= unix.EPOLLIN | unix.EPOLLRDHUP
	}
	if i&InterestWrite != 0 {
		mask |= unix.EPOLLOUT
	}
	return mask
}

// cookieEvent builds an EpollEvent whose 8-byte data union carries
// cookie in full, split across the Fd/Pad int32 halves.
func cookieEvent(mask uint32, cookie uint64) unix.EpollEvent {
	var ev unix.EpollEvent
	ev.Events = mask
	*(*uint64)(unsafe.Pointer(&ev.Fd)) = cookie
	return ev
}

func cookieOf(ev *unix.EpollEvent) uint64 {
	return *(*uint64)(unsafe.Pointer(&ev.Fd))
}

func (m *epollMultiplexer) Register(fd int, interest Interest, cookie uint64) error {
	ev := cookieEvent(interestToEpollMask(interest), cookie)
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

func (m *epollMultiplexer) Rearm(fd int, interest Interest, cookie uint64) error {
	ev := cookieEvent(interestToEpollMask(interest), cookie)
	return unix.EpollCtl(m.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

func (m *epollMultiplexer) Unregister(fd int) error {
	err := unix.EpollCtl(m.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	if errors.Is(err, unix.ENOENT) {
		return nil
	}
	return err
}

func (m *epollMultiplexer) Wait(events []PollEvent, timeoutMs int) (int, error) {
	raw := make([]unix.EpollEvent, len(events))
	n, err := unix.EpollWait(m.epfd, raw, timeoutMs)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return 0, nil
		}
		return 0, err
	}
	for i := 0; i < n; i++ {
		events[i] = PollEvent{
			Cookie:   cookieOf(&raw[i]),
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLRDHUP) != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
			Error:    raw[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0,
		}
	}
	return n, nil
}

func (m *epollMultiplexer) Close() error {
	return unix.Close(m.epfd)
}
