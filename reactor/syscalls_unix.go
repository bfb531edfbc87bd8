//go:build linux || darwin

// Low-level non-blocking socket helpers: SetNonblock plus SO_REUSEADDR
// on the listening socket, generalized to also cover outbound client
// connects and the wake pipe used to interrupt a blocked Wait call.
package reactor

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-ws/protocol"
)

// listenTCP opens a non-blocking, edge-triggered-ready listening socket
// bound to port (0 picks an ephemeral port) and returns its fd and the
// bound port.
func listenTCP(port uint16, backlog int) (fd int, boundPort uint16, err error) {
	if backlog <= 0 {
		backlog = 1024
	}
	fd, err = unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, 0, err
	}
	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	sa := &unix.SockaddrInet4{Port: int(port)}
	if err = unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if err = unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	boundAddr, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return -1, 0, err
	}
	if v4, ok := boundAddr.(*unix.SockaddrInet4); ok {
		boundPort = uint16(v4.Port)
	}
	return fd, boundPort, nil
}

// acceptNonblocking calls accept4 with O_NONBLOCK, translating the two
// expected would-block errnos (EAGAIN/EWOULDBLOCK) into a uniform
// ErrWouldBlock so callers never branch on platform errno values.
func acceptNonblocking(listenFd int) (int, error) {
	connFd, _, err := unix.Accept4(listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		if isWouldBlock(err) {
			return -1, protocol.ErrWouldBlock
		}
		return -1, err
	}
	_ = unix.SetsockoptInt(connFd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	return connFd, nil
}

// connectTCP issues a non-blocking connect; callers must wait for
// writability on the returned fd to learn the outcome.
func connectTCP(host string, port uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, err
	}
	ip, err := resolveIPv4(host)
	if err != nil {
		unix.Close(fd)
		return -1, err
	}
	sa := &unix.SockaddrInet4{Port: int(port), Addr: ip}
	err = unix.Connect(fd, sa)
	if err != nil && !errors.Is(err, unix.EINPROGRESS) {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

func rawSend(fd int, data []byte) (int, error) {
	n, err := unix.Write(fd, data)
	if err != nil {
		if isWouldBlock(err) {
			return 0, protocol.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func rawRecv(fd int, buf []byte) (int, error) {
	n, err := unix.Read(fd, buf)
	if err != nil {
		if isWouldBlock(err) {
			return 0, protocol.ErrWouldBlock
		}
		return 0, err
	}
	return n, nil
}

func shutdownWrite(fd int) {
	_ = unix.Shutdown(fd, unix.SHUT_WR)
}

func closeFd(fd int) {
	_ = unix.Close(fd)
}

// wakePipe returns a non-blocking pipe used purely to interrupt a
// blocked multiplexer Wait from another goroutine. The read end is
// registered with the multiplexer under cookie 0.
func wakePipe() (readFd, writeFd int, err error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func drainWakePipe(fd int) {
	var buf [64]byte
	for {
		_, err := unix.Read(fd, buf[:])
		if err != nil {
			return
		}
	}
}

func pokeWakePipe(fd int) {
	_, _ = unix.Write(fd, []byte{0})
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func resolveIPv4(host string) ([4]byte, error) {
	var ip4 [4]byte
	addrs, err := net.LookupIP(host)
	if err != nil || len(addrs) == 0 {
		return ip4, err
	}
	for _, a := range addrs {
		if v4 := a.To4(); v4 != nil {
			copy(ip4[:], v4)
			return ip4, nil
		}
	}
	return ip4, errors.New("no A record for " + host)
}
