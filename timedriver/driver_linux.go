//go:build linux

package timedriver

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// LinuxDriver drives a TickSource from a Linux timerfd, polled via epoll
// alongside an eventfd used purely to unblock Stop — the same epoll +
// eventfd pairing the reference event loop uses for its poller/wakeup fds,
// applied here to periodic expiry instead of I/O readiness.
type LinuxDriver struct {
	period time.Duration
	target TickSource

	epfd    int
	timerFd int
	stopFd  int

	done chan struct{}
}

// NewLinux constructs a LinuxDriver. Returns an error if any of the
// underlying timerfd/eventfd/epoll syscalls fail.
func NewLinux(period time.Duration, target TickSource) (*LinuxDriver, error) {
	timerFd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, unix.TFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("timedriver: timerfd_create: %w", err)
	}
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(period.Nanoseconds()),
		Value:    unix.NsecToTimespec(period.Nanoseconds()),
	}
	if err := unix.TimerfdSettime(timerFd, 0, &spec, nil); err != nil {
		_ = unix.Close(timerFd)
		return nil, fmt.Errorf("timedriver: timerfd_settime: %w", err)
	}

	stopFd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	if err != nil {
		_ = unix.Close(timerFd)
		return nil, fmt.Errorf("timedriver: eventfd: %w", err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		_ = unix.Close(timerFd)
		_ = unix.Close(stopFd)
		return nil, fmt.Errorf("timedriver: epoll_create1: %w", err)
	}
	for _, fd := range [...]int{timerFd, stopFd} {
		ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
			_ = unix.Close(epfd)
			_ = unix.Close(timerFd)
			_ = unix.Close(stopFd)
			return nil, fmt.Errorf("timedriver: epoll_ctl: %w", err)
		}
	}

	return &LinuxDriver{
		period:  period,
		target:  target,
		epfd:    epfd,
		timerFd: timerFd,
		stopFd:  stopFd,
		done:    make(chan struct{}),
	}, nil
}

// Start begins ticking in a background goroutine. Must be called at most
// once.
func (d *LinuxDriver) Start() {
	go d.run()
}

// Stop halts the driver and blocks until its goroutine has exited, then
// releases the underlying file descriptors.
func (d *LinuxDriver) Stop() {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(d.stopFd, buf[:])
	<-d.done

	_ = unix.Close(d.epfd)
	_ = unix.Close(d.timerFd)
	_ = unix.Close(d.stopFd)
}

func (d *LinuxDriver) run() {
	defer close(d.done)

	var events [2]unix.EpollEvent
	for {
		n, err := unix.EpollWait(d.epfd, events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			switch fd {
			case d.timerFd:
				var buf [8]byte
				if _, err := unix.Read(d.timerFd, buf[:]); err != nil {
					continue
				}
				expirations := binary.LittleEndian.Uint64(buf[:])
				for j := uint64(0); j < expirations; j++ {
					d.target.Tick()
				}
			case d.stopFd:
				return
			}
		}
	}
}
