// Standalone load generator: spins up R rooms with M members each, every
// member joins over websocket and spams text messages while counting the
// receive_message events coming back.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	BaseURL = "http://localhost:8080"
	WSURL   = "ws://localhost:8080/ws"

	RoomCount   = 50 // rooms created for the run
	MemberCount = 4  // members per room
	MsgCount    = 20 // messages per member
)

var received atomic.Int64

func main() {
	log.Printf("starting load test: %d rooms x %d members, %d msgs each...",
		RoomCount, MemberCount, MsgCount)

	var wg sync.WaitGroup
	for i := 0; i < RoomCount; i++ {
		wg.Add(1)
		go func(roomNum int) {
			defer wg.Done()
			runRoom(roomNum)
		}(i)
	}
	wg.Wait()

	want := int64(RoomCount) * MemberCount * MemberCount * MsgCount
	log.Printf("load test complete: received %d/%d broadcast events", received.Load(), want)
}

func runRoom(roomNum int) {
	roomID := fmt.Sprintf("loadtest-room-%d-%d", roomNum, time.Now().UnixMilli())

	if !createRoom(roomID) {
		return
	}

	var wsWg sync.WaitGroup
	wsWg.Add(MemberCount)
	for m := 0; m < MemberCount; m++ {
		go spamChat(&wsWg, roomID, fmt.Sprintf("user_%d_%d", roomNum, m))
	}
	wsWg.Wait()
}

func createRoom(roomID string) bool {
	body, _ := json.Marshal(map[string]string{"roomId": roomID})
	resp, err := http.Post(BaseURL+"/create-room", "application/json", bytes.NewBuffer(body))
	if err != nil || resp.StatusCode != http.StatusCreated {
		log.Printf("create room failed [%s]: %v", roomID, err)
		return false
	}
	resp.Body.Close()
	return true
}

func spamChat(wg *sync.WaitGroup, roomID, user string) {
	defer wg.Done()

	conn, _, err := websocket.DefaultDialer.Dial(WSURL, nil)
	if err != nil {
		log.Printf("ws connect failed [%s]: %v", user, err)
		return
	}
	defer conn.Close()

	// Count broadcasts arriving on this connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var ev struct {
				Type string `json:"type"`
			}
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			if ev.Type == "receive_message" {
				received.Add(1)
			}
		}
	}()

	join := map[string]string{"type": "join_room", "roomId": roomID}
	if err := conn.WriteJSON(join); err != nil {
		log.Printf("join failed [%s]: %v", user, err)
		return
	}

	for i := 0; i < MsgCount; i++ {
		msg := map[string]string{
			"type":   "send_message",
			"roomId": roomID,
			"sender": user,
			"body":   fmt.Sprintf("loadtest msg %d from %s", i, user),
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Printf("send failed [%s]: %v", user, err)
			break
		}
		// Small sleep to avoid an instant localhost bottleneck.
		time.Sleep(10 * time.Millisecond)
	}

	// Linger so the slowest member's messages still reach us.
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}
	log.Printf("%s finished sending %d msgs", user, MsgCount)
}
