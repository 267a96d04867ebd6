// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import "strings"

// PacketID identifies one sensor packet.
type PacketID uint8

// Kind is a sensor packet's decode rule.
type Kind int

const (
	KindUnsigned Kind = iota
	KindSigned
	KindBool
	KindBitmask
	KindEnum
)

// Sensor packet IDs
const (
	PacketBumpsWheelDrops    PacketID = 7
	PacketWall               PacketID = 8
	PacketCliffLeft          PacketID = 9
	PacketCliffFrontLeft     PacketID = 10
	PacketCliffFrontRight    PacketID = 11
	PacketCliffRight         PacketID = 12
	PacketVirtualWall        PacketID = 13
	PacketOvercurrents       PacketID = 14
	PacketDirtDetect         PacketID = 15
	PacketUnused16           PacketID = 16
	PacketIROpcode           PacketID = 17
	PacketButtons            PacketID = 18
	PacketDistance           PacketID = 19
	PacketAngle              PacketID = 20
	PacketChargingState      PacketID = 21
	PacketVoltage            PacketID = 22
	PacketCurrent            PacketID = 23
	PacketTemperature        PacketID = 24
	PacketBatteryCharge      PacketID = 25
	PacketBatteryCapacity    PacketID = 26
	PacketWallSignal         PacketID = 27
	PacketCliffLeftSignal    PacketID = 28
	PacketCliffFLeftSignal   PacketID = 29
	PacketCliffFRightSignal  PacketID = 30
	PacketCliffRightSignal   PacketID = 31
	PacketUnused32           PacketID = 32
	PacketUnused33           PacketID = 33
	PacketChargingSources    PacketID = 34
	PacketOIMode             PacketID = 35
	PacketSongNumber         PacketID = 36
	PacketSongPlaying        PacketID = 37
	PacketStreamPackets      PacketID = 38
	PacketRequestedVelocity  PacketID = 39
	PacketRequestedRadius    PacketID = 40
	PacketRequestedRightVel  PacketID = 41
	PacketRequestedLeftVel   PacketID = 42
	PacketLeftEncoder        PacketID = 43
	PacketRightEncoder       PacketID = 44
	PacketLightBumper        PacketID = 45
	PacketLightBumpLeft      PacketID = 46
	PacketLightBumpFrontLeft PacketID = 47
	PacketLightBumpCenterL   PacketID = 48
	PacketLightBumpCenterR   PacketID = 49
	PacketLightBumpFrontR    PacketID = 50
	PacketLightBumpRight     PacketID = 51
	PacketIROpcodeLeft       PacketID = 52
	PacketIROpcodeRight      PacketID = 53
	PacketLeftMotorCurrent   PacketID = 54
	PacketRightMotorCurrent  PacketID = 55
	PacketMainBrushCurrent   PacketID = 56
	PacketSideBrushCurrent   PacketID = 57
	PacketStasis             PacketID = 58
)

// Group packet IDs expand to a fixed run of single packets.
const (
	GroupBasic      PacketID = 0   // 7-26
	GroupBumps      PacketID = 1   // 7-16
	GroupControls   PacketID = 2   // 17-20
	GroupPower      PacketID = 3   // 21-26
	GroupSignals    PacketID = 4   // 27-34
	GroupStatus     PacketID = 5   // 35-42
	GroupLegacy     PacketID = 6   // 7-42
	GroupAll        PacketID = 100 // 7-58
	GroupExtended   PacketID = 101 // 43-58
	GroupLightBumps PacketID = 106 // 46-51
	GroupCurrents   PacketID = 107 // 54-58
)

// PacketInfo is the static layout of one sensor packet.
type PacketInfo struct {
	Name  string
	Width int // 1 or 2 bytes
	Kind  Kind
	Enum  []string // names for KindEnum values, indexed by value
	Flags []Flag   // named bits for KindBitmask
}

var chargingStateNames = []string{
	"NOT_CHARGING", "RECONDITIONING", "FULL_CHARGING", "TRICKLE_CHARGING", "WAITING", "FAULT",
}

var modeNames = []string{"OFF", "PASSIVE", "SAFE", "FULL"}

func unsigned(name string, width int) *PacketInfo {
	return &PacketInfo{Name: name, Width: width, Kind: KindUnsigned}
}

func signed(name string, width int) *PacketInfo {
	return &PacketInfo{Name: name, Width: width, Kind: KindSigned}
}

func boolean(name string) *PacketInfo {
	return &PacketInfo{Name: name, Width: 1, Kind: KindBool}
}

func bitmask(name string, flags ...Flag) *PacketInfo {
	return &PacketInfo{Name: name, Width: 1, Kind: KindBitmask, Flags: flags}
}

func enum(name string, values []string) *PacketInfo {
	return &PacketInfo{Name: name, Width: 1, Kind: KindEnum, Enum: values}
}

var packetTable = map[PacketID]*PacketInfo{
	PacketBumpsWheelDrops:    bitmask("BUMPS_AND_WHEELDROPS", BumpRight, BumpLeft, WheelDropRight, WheelDropLeft),
	PacketWall:               boolean("WALL"),
	PacketCliffLeft:          boolean("CLIFF_LEFT"),
	PacketCliffFrontLeft:     boolean("CLIFF_FRONT_LEFT"),
	PacketCliffFrontRight:    boolean("CLIFF_FRONT_RIGHT"),
	PacketCliffRight:         boolean("CLIFF_RIGHT"),
	PacketVirtualWall:        boolean("VIRTUAL_WALL"),
	PacketOvercurrents:       bitmask("WHEEL_OVERCURRENTS", OvercurrentSideBrush, OvercurrentMainBrush, OvercurrentRightWheel, OvercurrentLeftWheel),
	PacketDirtDetect:         unsigned("DIRT_DETECT", 1),
	PacketUnused16:           unsigned("UNUSED_16", 1),
	PacketIROpcode:           unsigned("IR_OPCODE", 1),
	PacketButtons:            bitmask("BUTTONS", ButtonClean, ButtonSpot, ButtonDock, ButtonMinute, ButtonHour, ButtonDay, ButtonSchedule, ButtonClock),
	PacketDistance:           signed("DISTANCE", 2),
	PacketAngle:              signed("ANGLE", 2),
	PacketChargingState:      enum("CHARGING_STATE", chargingStateNames),
	PacketVoltage:            unsigned("VOLTAGE", 2),
	PacketCurrent:            signed("CURRENT", 2),
	PacketTemperature:        signed("TEMPERATURE", 1),
	PacketBatteryCharge:      unsigned("BATTERY_CHARGE", 2),
	PacketBatteryCapacity:    unsigned("BATTERY_CAPACITY", 2),
	PacketWallSignal:         unsigned("WALL_SIGNAL", 2),
	PacketCliffLeftSignal:    unsigned("CLIFF_LEFT_SIGNAL", 2),
	PacketCliffFLeftSignal:   unsigned("CLIFF_FRONT_LEFT_SIGNAL", 2),
	PacketCliffFRightSignal:  unsigned("CLIFF_FRONT_RIGHT_SIGNAL", 2),
	PacketCliffRightSignal:   unsigned("CLIFF_RIGHT_SIGNAL", 2),
	PacketUnused32:           unsigned("UNUSED_32", 1),
	PacketUnused33:           unsigned("UNUSED_33", 2),
	PacketChargingSources:    bitmask("CHARGING_SOURCES", ChargerInternal, ChargerHomeBase),
	PacketOIMode:             enum("OI_MODE", modeNames),
	PacketSongNumber:         unsigned("SONG_NUMBER", 1),
	PacketSongPlaying:        boolean("SONG_PLAYING"),
	PacketStreamPackets:      unsigned("NUMBER_OF_STREAM_PACKETS", 1),
	PacketRequestedVelocity:  signed("REQUESTED_VELOCITY", 2),
	PacketRequestedRadius:    signed("REQUESTED_RADIUS", 2),
	PacketRequestedRightVel:  signed("REQUESTED_RIGHT_VELOCITY", 2),
	PacketRequestedLeftVel:   signed("REQUESTED_LEFT_VELOCITY", 2),
	PacketLeftEncoder:        unsigned("LEFT_ENCODER_COUNTS", 2),
	PacketRightEncoder:       unsigned("RIGHT_ENCODER_COUNTS", 2),
	PacketLightBumper:        bitmask("LIGHT_BUMPER", LightBumperLeft, LightBumperFrontLeft, LightBumperCenterLeft, LightBumperCenterRight, LightBumperFrontRight, LightBumperRight),
	PacketLightBumpLeft:      unsigned("LIGHT_BUMP_LEFT_SIGNAL", 2),
	PacketLightBumpFrontLeft: unsigned("LIGHT_BUMP_FRONT_LEFT_SIGNAL", 2),
	PacketLightBumpCenterL:   unsigned("LIGHT_BUMP_CENTER_LEFT_SIGNAL", 2),
	PacketLightBumpCenterR:   unsigned("LIGHT_BUMP_CENTER_RIGHT_SIGNAL", 2),
	PacketLightBumpFrontR:    unsigned("LIGHT_BUMP_FRONT_RIGHT_SIGNAL", 2),
	PacketLightBumpRight:     unsigned("LIGHT_BUMP_RIGHT_SIGNAL", 2),
	PacketIROpcodeLeft:       unsigned("IR_OPCODE_LEFT", 1),
	PacketIROpcodeRight:      unsigned("IR_OPCODE_RIGHT", 1),
	PacketLeftMotorCurrent:   signed("LEFT_MOTOR_CURRENT", 2),
	PacketRightMotorCurrent:  signed("RIGHT_MOTOR_CURRENT", 2),
	PacketMainBrushCurrent:   signed("MAIN_BRUSH_MOTOR_CURRENT", 2),
	PacketSideBrushCurrent:   signed("SIDE_BRUSH_MOTOR_CURRENT", 2),
	PacketStasis:             bitmask("STASIS", StasisToggling, StasisDisabled),
}

type packetRange struct {
	name     string
	from, to PacketID
}

var groupTable = map[PacketID]packetRange{
	GroupBasic:      {"GROUP_0", 7, 26},
	GroupBumps:      {"GROUP_1", 7, 16},
	GroupControls:   {"GROUP_2", 17, 20},
	GroupPower:      {"GROUP_3", 21, 26},
	GroupSignals:    {"GROUP_4", 27, 34},
	GroupStatus:     {"GROUP_5", 35, 42},
	GroupLegacy:     {"GROUP_6", 7, 42},
	GroupAll:        {"GROUP_100", 7, 58},
	GroupExtended:   {"GROUP_101", 43, 58},
	GroupLightBumps: {"GROUP_106", 46, 51},
	GroupCurrents:   {"GROUP_107", 54, 58},
}

// LookupPacket returns the layout of a single (non-group) packet.
func LookupPacket(id PacketID) (*PacketInfo, bool) {
	info, ok := packetTable[id]
	return info, ok
}

// IsGroup reports whether id is a group packet.
func IsGroup(id PacketID) bool {
	_, ok := groupTable[id]
	return ok
}

// Expand returns the single packet IDs that id stands for, in reply order.
func Expand(id PacketID) ([]PacketID, error) {
	if g, ok := groupTable[id]; ok {
		ids := make([]PacketID, 0, int(g.to-g.from)+1)
		for p := g.from; p <= g.to; p++ {
			ids = append(ids, p)
		}
		return ids, nil
	}
	if _, ok := packetTable[id]; ok {
		return []PacketID{id}, nil
	}
	return nil, &UnknownPacketError{Packet: id}
}

// packetWidth returns the reply width of a single or group packet.
func packetWidth(id PacketID) (int, bool) {
	if info, ok := packetTable[id]; ok {
		return info.Width, true
	}
	if g, ok := groupTable[id]; ok {
		n := 0
		for p := g.from; p <= g.to; p++ {
			n += packetTable[p].Width
		}
		return n, true
	}
	return 0, false
}

// ReplyLength returns the number of bytes the robot sends in answer to a
// query for ids.
func ReplyLength(ids ...PacketID) (int, error) {
	total := 0
	for _, id := range ids {
		w, ok := packetWidth(id)
		if !ok {
			return 0, &UnknownPacketError{Packet: id}
		}
		total += w
	}
	return total, nil
}

// PacketByName resolves a packet name such as "OI_MODE" or "group_100".
func PacketByName(name string) (PacketID, bool) {
	name = strings.ReplaceAll(name, "-", "_")
	for id, info := range packetTable {
		if strings.EqualFold(info.Name, name) {
			return id, true
		}
	}
	for id, g := range groupTable {
		if strings.EqualFold(g.name, name) {
			return id, true
		}
	}
	return 0, false
}
