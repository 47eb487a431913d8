// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, presence stats, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// WebSocketHandler upgrades the request to a WebSocket connection and hands
// it to the chat hub. A failed upgrade creates no registry entry; the
// upgrader has already written the HTTP error response.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, s.cfg, s.base)
	s.serveClient(client)
}

// StatsHandler reports the current presence counts as JSON.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshotStats(s.hub)); err != nil {
		s.logger.Warn("write stats response", zap.Error(err))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Chat server is running!")
}

// TestPageHandler serves an HTML page for exercising the chat protocol by hand:
// join with a name, send messages, and watch typing and presence events.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Chat WebSocket Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        .meta { color: gray; margin: 5px 0; }
    </style>
</head>
<body>
    <h1>Chat WebSocket Test</h1>

    <div class="meta">Online: <span id="online">0</span> <span id="typing"></span></div>

    <div>
        <input type="text" id="nameInput" placeholder="Your name...">
        <button onclick="join()">Join</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <div id="messages"></div>

    <script>
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        const ws = new WebSocket(scheme + location.host + '/ws');
        const messagesDiv = document.getElementById('messages');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        let username = '';
        let typingTimer = null;

        function send(type, data) {
            ws.send(JSON.stringify({ type: type, data: data }));
        }

        function addLine(text) {
            const line = document.createElement('div');
            line.textContent = text;
            messagesDiv.appendChild(line);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function join() {
            username = document.getElementById('nameInput').value.trim();
            if (!username) { return; }
            send('join', username);
            messageInput.disabled = false;
            sendButton.disabled = false;
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (!text) { return; }
            send('message', { text: text, user: username, time: '' });
            messageInput.value = '';
        }

        ws.onmessage = function(event) {
            const msg = JSON.parse(event.data);
            if (msg.type === 'users_online') {
                document.getElementById('online').textContent = msg.data;
            } else if (msg.type === 'message') {
                addLine('[' + msg.data.time + '] ' + msg.data.user + ': ' + msg.data.text);
            } else if (msg.type === 'typing') {
                const el = document.getElementById('typing');
                el.textContent = msg.data + ' is typing...';
                clearTimeout(typingTimer);
                typingTimer = setTimeout(function() { el.textContent = ''; }, 2000);
            }
        };

        ws.onclose = function() { addLine('Connection closed'); };

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            } else {
                send('typing', username);
            }
        });
    </script>
</body>
</html>`
