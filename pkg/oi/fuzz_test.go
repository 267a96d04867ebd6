// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package oi

import (
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// knownPackets returns every single packet id in ascending order.
func knownPackets() []PacketID {
	var ids []PacketID
	for id := 0; id < 256; id++ {
		if _, ok := packetTable[PacketID(id)]; ok {
			ids = append(ids, PacketID(id))
		}
	}
	return ids
}

// buildRandomStreamPayload creates a well-formed stream payload of 1-8
// random packets with random values.
func buildRandomStreamPayload(rng *rand.Rand, ids []PacketID) []byte {
	var payload []byte
	n := rng.Intn(8) + 1
	for i := 0; i < n; i++ {
		id := ids[rng.Intn(len(ids))]
		payload = append(payload, byte(id))
		for w := 0; w < packetTable[id].Width; w++ {
			payload = append(payload, byte(rng.Intn(256)))
		}
	}
	return payload
}

// ============================================================
// Stream Decoder Fuzz Tests
// ============================================================

// TestFuzzStreamDecoder_RandomBytes feeds random bytes to the decoder
// and verifies it doesn't crash or panic
func TestFuzzStreamDecoder_RandomBytes(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		d := NewStreamDecoder()

		length := rng.Intn(512) + 1
		data := make([]byte, length)
		rng.Read(data)

		d.Decode(data)
	}
}

// TestFuzzStreamDecoder_RandomFrames encodes random payloads and verifies
// they decode back to the same values
func TestFuzzStreamDecoder_RandomFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	ids := knownPackets()
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := buildRandomStreamPayload(rng, ids)
		frame, err := EncodeStreamFrame(payload)
		if err != nil {
			t.Fatalf("Round %d: EncodeStreamFrame error: %v", i, err)
		}

		d := NewStreamDecoder()
		snaps, errs := d.Decode(frame)
		if len(errs) != 0 {
			t.Errorf("Round %d: unexpected decode errors: %v", i, errs)
			continue
		}
		if len(snaps) != 1 {
			t.Errorf("Round %d: expected 1 snapshot, got %d", i, len(snaps))
			continue
		}

		// The last occurrence of each id wins.
		want := map[PacketID]int{}
		for off := 0; off < len(payload); {
			id := PacketID(payload[off])
			w := packetTable[id].Width
			r, _ := DecodeValue(id, payload[off+1:off+1+w])
			want[id] = r.Value
			off += 1 + w
		}
		for id, v := range want {
			if got := snaps[0].Int(id); got != v {
				t.Errorf("Round %d: packet %d = %d, want %d", i, id, got, v)
			}
		}
	}
}

// TestFuzzStreamDecoder_CorruptedFrames corrupts one byte of a valid frame
// and verifies the decoder still recovers for the next frame
func TestFuzzStreamDecoder_CorruptedFrames(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	ids := knownPackets()
	t.Logf("Running %d fuzz rounds", rounds)

	good, _ := EncodeStreamFrame([]byte{byte(PacketOIMode), byte(ModePassive)})

	for i := 0; i < rounds; i++ {
		frame, _ := EncodeStreamFrame(buildRandomStreamPayload(rng, ids))
		idx := rng.Intn(len(frame)-1) + 1
		frame[idx] ^= byte(rng.Intn(255) + 1)

		d := NewStreamDecoder()
		d.Decode(frame)

		// A corrupted length byte can leave the decoder mid-frame; an idle
		// gap of resets is what the transport layer provides on timeout.
		d.Reset()
		snaps, errs := d.Decode(good)
		if len(errs) != 0 || len(snaps) != 1 || snaps[0].Mode() != ModePassive {
			t.Errorf("Round %d: decoder did not recover: %d snapshots, errors %v", i, len(snaps), errs)
		}
	}
}

// ============================================================
// Encoder Fuzz Tests
// ============================================================

// TestFuzzEncode_RandomArgs feeds random argument vectors to every fixed
// layout opcode. Encoding must either fail or round trip.
func TestFuzzEncode_RandomArgs(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	ops := Opcodes()
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		op := ops[rng.Intn(len(ops))]
		info, _ := LookupOpcode(op)

		n := len(info.Args)
		if info.Variable != nil {
			n = rng.Intn(6)
		}
		args := make([]int, n)
		for j := range args {
			args[j] = rng.Intn(70000) - 35000
		}

		f, err := Encode(op, args...)
		if err != nil {
			if !f.IsZero() {
				t.Errorf("Round %d: %s returned bytes with error", i, info.Name)
			}
			continue
		}

		got, err := DecodeArgs(f)
		if err != nil {
			t.Errorf("Round %d: %s DecodeArgs error: %v", i, info.Name, err)
			continue
		}
		for j := range args {
			if got[j] != args[j] {
				t.Errorf("Round %d: %s arg %d = %d, want %d", i, info.Name, j, got[j], args[j])
			}
		}
	}
}

// TestFuzzDecodeReply_RandomData decodes random data of the right length
// for random packet lists; decoding must always succeed
func TestFuzzDecodeReply_RandomData(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	ids := knownPackets()
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		query := make([]PacketID, rng.Intn(5)+1)
		for j := range query {
			query[j] = ids[rng.Intn(len(ids))]
		}
		n, err := ReplyLength(query...)
		if err != nil {
			t.Fatalf("Round %d: ReplyLength error: %v", i, err)
		}
		data := make([]byte, n)
		rng.Read(data)

		if _, err := DecodeReply(query, data); err != nil {
			t.Errorf("Round %d: DecodeReply(%v) error: %v", i, query, err)
		}
	}
}
