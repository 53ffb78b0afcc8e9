// Copyright The Draconis Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux

package probe

import (
	"encoding/binary"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/draconis-go/draconis/internal/errs"
	"github.com/draconis-go/draconis/pkg/hostinfo"
)

// x11Conn is a minimal client for the subset of the X11 wire protocol and
// the RandR extension that draconis needs: interning atoms, reading window
// properties, and enumerating CRTCs/outputs. There is no pure-Go or cgo X11
// binding in the dependency graph, so this talks the binary protocol
// directly over the display socket, mirroring what libxcb does under the
// xcb.Connect/InternAtom/GetProperty calls the reference implementation
// wraps.
type x11Conn struct {
	conn net.Conn
	root uint32
	seq  uint16
}

const (
	x11AtomWindow  = 33 // predefined ATOM_WINDOW atom id
	x11CurrentTime = 0

	randrOpGetScreenResourcesCurrent = 25
	randrOpGetOutputInfo             = 9
	randrOpGetCrtcInfo               = 20
	randrOpGetOutputPrimary          = 31
)

func dialX11() (*x11Conn, error) {
	display := os.Getenv("DISPLAY")
	if display == "" {
		return nil, errs.New(errs.NotFound, "$DISPLAY is not set")
	}

	host, dispNum, screenNum := parseX11Display(display)
	_ = screenNum

	var conn net.Conn
	var err error
	if host == "" || host == "unix" {
		conn, err = net.DialTimeout("unix", fmt.Sprintf("/tmp/.X11-unix/X%d", dispNum), 2*time.Second)
	} else {
		conn, err = net.DialTimeout("tcp", fmt.Sprintf("%s:%d", host, 6000+dispNum), 2*time.Second)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ApiUnavailable, err, "connecting to X display %s", display)
	}

	authName, authData := lookupXauth(dispNum)

	req := make([]byte, 12+pad4(len(authName))+pad4(len(authData)))
	req[0] = 'l' // little-endian byte order
	binary.LittleEndian.PutUint16(req[2:4], 11)
	binary.LittleEndian.PutUint16(req[4:6], 0)
	binary.LittleEndian.PutUint16(req[6:8], uint16(len(authName)))
	binary.LittleEndian.PutUint16(req[8:10], uint16(len(authData)))
	copy(req[12:], authName)
	copy(req[12+pad4(len(authName)):], authData)

	if _, err := conn.Write(req); err != nil {
		conn.Close()
		return nil, errs.Wrap(errs.IoError, err, "sending X11 setup request")
	}

	hdr := make([]byte, 8)
	if _, err := readFull(conn, hdr); err != nil {
		conn.Close()
		return nil, errs.Wrap(errs.IoError, err, "reading X11 setup header")
	}
	addLen := int(binary.LittleEndian.Uint16(hdr[6:8]))
	extra := make([]byte, addLen*4)
	if _, err := readFull(conn, extra); err != nil {
		conn.Close()
		return nil, errs.Wrap(errs.IoError, err, "reading X11 setup body")
	}

	switch hdr[0] {
	case 0:
		conn.Close()
		return nil, errs.New(errs.ApiUnavailable, "X server refused connection setup")
	case 2:
		conn.Close()
		return nil, errs.New(errs.ApiUnavailable, "X server requires further authentication")
	case 1:
		// success, fall through
	default:
		conn.Close()
		return nil, errs.New(errs.ApiUnavailable, "unrecognized X11 setup reply")
	}

	vendorLen := int(binary.LittleEndian.Uint16(extra[16:18]))
	numFormats := int(extra[21])
	rootOffset := 32 + pad4(vendorLen) + numFormats*8
	if rootOffset+4 > len(extra) {
		conn.Close()
		return nil, errs.New(errs.ParseError, "X11 setup reply too short to contain a root screen")
	}
	root := binary.LittleEndian.Uint32(extra[rootOffset : rootOffset+4])

	return &x11Conn{conn: conn, root: root, seq: 0}, nil
}

func (c *x11Conn) Close() {
	c.conn.Close()
}

func pad4(n int) int {
	return (n + 3) &^ 3
}

func readFull(r net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// roundTrip sends req (a full, already-padded request including its 2-byte
// length field) and returns the reply with the generic 32-byte frame and
// any trailing data concatenated, so fixed-reply fields that straddle the
// 32-byte boundary (as RandR's do) can be read at a flat byte offset.
func (c *x11Conn) roundTrip(req []byte) ([]byte, error) {
	c.seq++
	if _, err := c.conn.Write(req); err != nil {
		return nil, errs.Wrap(errs.IoError, err, "writing X11 request")
	}

	for {
		buf := make([]byte, 32)
		if _, err := readFull(c.conn, buf); err != nil {
			return nil, errs.Wrap(errs.IoError, err, "reading X11 reply")
		}
		switch {
		case buf[0] == 0:
			return nil, errs.New(errs.PlatformSpecific, "X server returned an error for request")
		case buf[0] == 1:
			length := binary.LittleEndian.Uint32(buf[4:8])
			if length == 0 {
				return buf, nil
			}
			extra := make([]byte, length*4)
			if _, err := readFull(c.conn, extra); err != nil {
				return nil, errs.Wrap(errs.IoError, err, "reading X11 reply body")
			}
			return append(buf, extra...), nil
		default:
			// An event arrived instead of the reply we expect; this
			// connection never selects for input, so discard and retry.
			continue
		}
	}
}

func (c *x11Conn) internAtom(name string) (uint32, error) {
	req := make([]byte, 8+pad4(len(name)))
	req[0] = 16 // InternAtom
	req[1] = 0  // only_if_exists = false
	binary.LittleEndian.PutUint16(req[2:4], uint16(len(req)/4))
	binary.LittleEndian.PutUint16(req[4:6], uint16(len(name)))
	copy(req[8:], name)

	reply, err := c.roundTrip(req)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(reply[8:12]), nil
}

// getProperty fetches up to maxLen 4-byte units of window's property,
// expected to be of the given type, and returns the raw value bytes.
func (c *x11Conn) getProperty(window, property, propType uint32, maxLen uint32) ([]byte, error) {
	req := make([]byte, 24)
	req[0] = 20 // GetProperty
	req[1] = 0  // delete = false
	binary.LittleEndian.PutUint16(req[2:4], 6)
	binary.LittleEndian.PutUint32(req[4:8], window)
	binary.LittleEndian.PutUint32(req[8:12], property)
	binary.LittleEndian.PutUint32(req[12:16], propType)
	binary.LittleEndian.PutUint32(req[16:20], 0)
	binary.LittleEndian.PutUint32(req[20:24], maxLen)

	reply, err := c.roundTrip(req)
	if err != nil {
		return nil, err
	}
	format := reply[1]
	valueLen := binary.LittleEndian.Uint32(reply[16:20])
	if valueLen == 0 {
		return nil, errs.New(errs.NotFound, "property has no value")
	}
	unitSize := uint32(1)
	switch format {
	case 16:
		unitSize = 2
	case 32:
		unitSize = 4
	}
	byteLen := valueLen * unitSize
	if int(32+byteLen) > len(reply) {
		byteLen = uint32(len(reply) - 32)
	}
	return reply[32 : 32+byteLen], nil
}

// queryExtension returns the major opcode RandR requests must be sent
// under, or an error if the X server does not advertise the extension.
func (c *x11Conn) queryExtension(name string) (uint8, error) {
	req := make([]byte, 8+pad4(len(name)))
	req[0] = 98 // QueryExtension
	binary.LittleEndian.PutUint16(req[2:4], uint16(len(req)/4))
	binary.LittleEndian.PutUint16(req[4:6], uint16(len(name)))
	copy(req[8:], name)

	reply, err := c.roundTrip(req)
	if err != nil {
		return 0, err
	}
	if reply[8] == 0 {
		return 0, errs.New(errs.NotSupported, "%s extension not present", name)
	}
	return reply[9], nil
}

func parseX11Display(display string) (host string, dispNum, screenNum int) {
	rest := display
	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		host = rest[:i]
		rest = rest[i+1:]
	}
	dispNum = 0
	screenNum = 0
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		screenNum, _ = strconv.Atoi(rest[i+1:])
		rest = rest[:i]
	}
	dispNum, _ = strconv.Atoi(rest)
	return host, dispNum, screenNum
}

// lookupXauth scans ~/.Xauthority for a MIT-MAGIC-COOKIE-1 entry matching
// the local display number, returning empty strings (no authentication)
// when the file is absent or no entry matches, in which case the server
// may still accept the connection unauthenticated.
func lookupXauth(dispNum int) (name string, data []byte) {
	path := os.Getenv("XAUTHORITY")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", nil
		}
		path = filepath.Join(home, ".Xauthority")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil
	}

	want := strconv.Itoa(dispNum)
	pos := 0
	readU16 := func() (uint16, bool) {
		if pos+2 > len(raw) {
			return 0, false
		}
		v := binary.BigEndian.Uint16(raw[pos : pos+2])
		pos += 2
		return v, true
	}
	readBytes := func(n uint16) ([]byte, bool) {
		if pos+int(n) > len(raw) {
			return nil, false
		}
		b := raw[pos : pos+int(n)]
		pos += int(n)
		return b, true
	}

	for pos < len(raw) {
		if _, ok := readU16(); !ok { // family
			break
		}
		addrLen, ok := readU16()
		if !ok {
			break
		}
		if _, ok := readBytes(addrLen); !ok {
			break
		}
		numLen, ok := readU16()
		if !ok {
			break
		}
		number, ok := readBytes(numLen)
		if !ok {
			break
		}
		nameLen, ok := readU16()
		if !ok {
			break
		}
		nameBytes, ok := readBytes(nameLen)
		if !ok {
			break
		}
		dataLen, ok := readU16()
		if !ok {
			break
		}
		dataBytes, ok := readBytes(dataLen)
		if !ok {
			break
		}
		if string(number) == want {
			return string(nameBytes), append([]byte(nil), dataBytes...)
		}
	}
	return "", nil
}

// x11WindowManagerName resolves the EWMH-compliant window manager name by
// reading _NET_SUPPORTING_WM_CHECK off the root window (a window ID the WM
// sets on itself as proof it implements the hint) and then _NET_WM_NAME off
// that window.
func x11WindowManagerName() (string, error) {
	conn, err := dialX11()
	if err != nil {
		return "", err
	}
	defer conn.Close()

	supportingWMCheck, err := conn.internAtom("_NET_SUPPORTING_WM_CHECK")
	if err != nil {
		return "", err
	}
	wmName, err := conn.internAtom("_NET_WM_NAME")
	if err != nil {
		return "", err
	}
	utf8String, err := conn.internAtom("UTF8_STRING")
	if err != nil {
		return "", err
	}

	wmWindowRaw, err := conn.getProperty(conn.root, supportingWMCheck, x11AtomWindow, 1)
	if err != nil || len(wmWindowRaw) < 4 {
		return "", errs.New(errs.NotFound, "_NET_SUPPORTING_WM_CHECK not set on root window")
	}
	wmWindow := binary.LittleEndian.Uint32(wmWindowRaw[:4])

	nameRaw, err := conn.getProperty(wmWindow, wmName, utf8String, 1024)
	if err != nil || len(nameRaw) == 0 {
		return "", errs.New(errs.NotFound, "_NET_WM_NAME not set on the window manager's check window")
	}
	return string(nameRaw), nil
}

// x11Displays enumerates outputs via the RandR extension: current screen
// resources give the output and mode list, GetOutputInfo maps an output to
// its CRTC, and GetCrtcInfo gives the CRTC's active geometry.
func x11Displays() ([]hostinfo.DisplayInfo, error) {
	conn, err := dialX11()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	randrOpcode, err := conn.queryExtension("RANDR")
	if err != nil {
		return nil, err
	}

	resReq := make([]byte, 8)
	resReq[0] = randrOpcode
	resReq[1] = randrOpGetScreenResourcesCurrent
	binary.LittleEndian.PutUint16(resReq[2:4], 2)
	binary.LittleEndian.PutUint32(resReq[4:8], conn.root)
	resReply, err := conn.roundTrip(resReq)
	if err != nil {
		return nil, errs.Wrap(errs.ApiUnavailable, err, "querying RandR screen resources")
	}

	numCrtcs := int(binary.LittleEndian.Uint16(resReply[16:18]))
	numOutputs := int(binary.LittleEndian.Uint16(resReply[18:20]))
	numModes := int(binary.LittleEndian.Uint16(resReply[20:22]))

	outputsOff := 32 + numCrtcs*4
	outputs := make([]uint32, numOutputs)
	for i := 0; i < numOutputs; i++ {
		outputs[i] = binary.LittleEndian.Uint32(resReply[outputsOff+i*4 : outputsOff+i*4+4])
	}

	modesOff := outputsOff + numOutputs*4
	type modeInfo struct {
		id               uint32
		htotal, vtotal   uint16
		dotClock         uint32
	}
	modes := make([]modeInfo, numModes)
	for i := 0; i < numModes; i++ {
		base := modesOff + i*32
		modes[i] = modeInfo{
			id:       binary.LittleEndian.Uint32(resReply[base : base+4]),
			dotClock: binary.LittleEndian.Uint32(resReply[base+8 : base+12]),
			htotal:   binary.LittleEndian.Uint16(resReply[base+16 : base+18]),
			vtotal:   binary.LittleEndian.Uint16(resReply[base+24 : base+26]),
		}
	}
	refreshForMode := func(modeID uint32) float64 {
		for _, m := range modes {
			if m.id == modeID && m.htotal > 0 && m.vtotal > 0 {
				return float64(m.dotClock) / (float64(m.htotal) * float64(m.vtotal))
			}
		}
		return 0
	}

	primaryReq := make([]byte, 8)
	primaryReq[0] = randrOpcode
	primaryReq[1] = randrOpGetOutputPrimary
	binary.LittleEndian.PutUint16(primaryReq[2:4], 2)
	binary.LittleEndian.PutUint32(primaryReq[4:8], conn.root)
	var primaryOutput uint32
	if primaryReply, err := conn.roundTrip(primaryReq); err == nil {
		primaryOutput = binary.LittleEndian.Uint32(primaryReply[8:12])
	}

	var displays []hostinfo.DisplayInfo
	for _, output := range outputs {
		infoReq := make([]byte, 12)
		infoReq[0] = randrOpcode
		infoReq[1] = randrOpGetOutputInfo
		binary.LittleEndian.PutUint16(infoReq[2:4], 3)
		binary.LittleEndian.PutUint32(infoReq[4:8], output)
		binary.LittleEndian.PutUint32(infoReq[8:12], x11CurrentTime)
		infoReply, err := conn.roundTrip(infoReq)
		if err != nil {
			continue
		}
		crtc := binary.LittleEndian.Uint32(infoReply[12:16])
		if crtc == 0 {
			continue
		}

		crtcReq := make([]byte, 12)
		crtcReq[0] = randrOpcode
		crtcReq[1] = randrOpGetCrtcInfo
		binary.LittleEndian.PutUint16(crtcReq[2:4], 3)
		binary.LittleEndian.PutUint32(crtcReq[4:8], crtc)
		binary.LittleEndian.PutUint32(crtcReq[8:12], x11CurrentTime)
		crtcReply, err := conn.roundTrip(crtcReq)
		if err != nil {
			continue
		}
		width := binary.LittleEndian.Uint16(crtcReply[16:18])
		height := binary.LittleEndian.Uint16(crtcReply[18:20])
		mode := binary.LittleEndian.Uint32(crtcReply[20:24])

		displays = append(displays, hostinfo.DisplayInfo{
			ID:        uint64(output),
			Width:     uint32(width),
			Height:    uint32(height),
			RefreshHz: refreshForMode(mode),
			IsPrimary: output == primaryOutput,
		})
	}

	return displays, nil
}
