// Package chat relays stored chat messages to connected websocket clients.
// There is one hub per group; hubs only ever see messages that are already
// durably stored, the REST handler publishes after the database commit.
package chat

import "sync"

const broadcastChannelSize = 256

// Hub fans a group's published messages out to its connected clients.
type Hub struct {
	groupID uint64

	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
}

// newHub constructs a hub for one group and starts its loop.
func newHub(groupID uint64) *Hub {
	h := &Hub{
		groupID:    groupID,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, broadcastChannelSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

// run owns the client set; all mutation goes through the channels.
func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case payload := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					// Slow consumer, drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Publish queues a payload for delivery to all connected clients.
func (h *Hub) Publish(payload []byte) {
	select {
	case h.broadcast <- payload:
	case <-h.done:
	}
}

// close stops the hub loop and disconnects all clients.
func (h *Hub) close() {
	h.closeOnce.Do(func() { close(h.done) })
}
