package api

import (
	"net/http"
)

const operatorUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Control Room - Routing</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: monospace;
            background: #12121a;
            color: #eee;
            height: 100vh;
            display: flex;
            flex-direction: column;
        }
        header {
            background: #1b1b2a;
            padding: 12px 20px;
            border-bottom: 1px solid #2d2d4a;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        header h1 { font-size: 16px; font-weight: normal; }
        #status {
            padding: 4px 10px;
            border-radius: 4px;
            font-size: 12px;
        }
        #status.connected { background: #1b4332; color: #95d5b2; }
        #status.disconnected { background: #7f1d1d; color: #fca5a5; }
        #status.connecting { background: #78350f; color: #fcd34d; }
        #slots {
            display: grid;
            grid-template-columns: repeat(4, 1fr);
            gap: 10px;
            padding: 14px 20px;
            background: #1b1b2a;
            border-bottom: 1px solid #2d2d4a;
        }
        .slot {
            border: 1px solid #2d2d4a;
            border-radius: 6px;
            padding: 10px;
            text-align: center;
        }
        .slot .label { font-size: 11px; color: #9ca3af; margin-bottom: 6px; }
        .slot .source { font-size: 14px; color: #eee; min-height: 18px; }
        .slot.studio-preview { border-color: #2e8b57; }
        .slot.studio-live { border-color: #00e676; }
        .slot.tv-preview { border-color: #b03030; }
        .slot.tv-live { border-color: #ff1744; }
        .slot.gated { opacity: 0.5; }
        .controls {
            background: #1b1b2a;
            padding: 10px 20px;
            border-bottom: 1px solid #2d2d4a;
            display: flex;
            gap: 10px;
            align-items: center;
            flex-wrap: wrap;
        }
        .control-group {
            display: flex;
            gap: 6px;
            align-items: center;
        }
        .control-group label { font-size: 12px; color: #9ca3af; }
        .control-group input, .control-group select {
            background: #12121a;
            border: 1px solid #2d2d4a;
            border-radius: 4px;
            padding: 6px 10px;
            color: #eee;
            font-family: monospace;
            font-size: 12px;
        }
        .control-group input { width: 160px; }
        .control-group button {
            background: #2563eb;
            border: none;
            border-radius: 4px;
            padding: 6px 12px;
            color: #fff;
            font-family: monospace;
            font-size: 12px;
            cursor: pointer;
        }
        .control-group button:hover { background: #1d4ed8; }
        .control-group button.promote { background: #059669; }
        .control-group button.promote:hover { background: #047857; }
        .divider {
            width: 1px;
            height: 24px;
            background: #2d2d4a;
            margin: 0 6px;
        }
        #result {
            font-size: 12px;
            padding: 4px 10px;
            border-radius: 4px;
            display: none;
        }
        #result.success { display: inline; background: #1b4332; color: #95d5b2; }
        #result.error { display: inline; background: #7f1d1d; color: #fca5a5; }
        main { flex: 1; overflow: hidden; display: flex; flex-direction: column; }
        #events { flex: 1; overflow-y: auto; padding: 10px; }
        .event {
            padding: 8px 12px;
            margin-bottom: 4px;
            background: #1b1b2a;
            border-radius: 4px;
            border-left: 3px solid #2d2d4a;
            font-size: 13px;
            display: flex;
            gap: 12px;
            align-items: baseline;
        }
        .event.level-error { border-left-color: #dc2626; background: #1f1515; }
        .event.level-warn { border-left-color: #d97706; }
        .event.scope-routing { border-left-color: #2563eb; }
        .event.scope-promotion { border-left-color: #059669; }
        .event.scope-compositor { border-left-color: #7c3aed; }
        .event.scope-audio { border-left-color: #0891b2; }
        .event.scope-input { border-left-color: #db2777; }
        .event.scope-highlight { border-left-color: #d97706; }
        .ts { color: #6b7280; font-size: 11px; min-width: 90px; }
        .name { color: #60a5fa; font-weight: bold; min-width: 160px; }
        .id { color: #a78bfa; }
        .msg { color: #9ca3af; }
        footer {
            background: #1b1b2a;
            padding: 8px 20px;
            border-top: 1px solid #2d2d4a;
            font-size: 11px;
            color: #6b7280;
        }
    </style>
</head>
<body>
    <header>
        <h1>Control Room - Pipeline Routing</h1>
        <span id="status" class="disconnected">Disconnected</span>
    </header>
    <div id="slots">
        <div class="slot studio-preview" id="slot-StudioPreview">
            <div class="label">STUDIO PREVIEW</div>
            <div class="source">-</div>
        </div>
        <div class="slot studio-live" id="slot-StudioLive">
            <div class="label">STUDIO LIVE</div>
            <div class="source">-</div>
        </div>
        <div class="slot tv-preview" id="slot-TVPreview">
            <div class="label">TV PREVIEW</div>
            <div class="source">-</div>
        </div>
        <div class="slot tv-live" id="slot-TVLive">
            <div class="label">TV LIVE</div>
            <div class="source">-</div>
        </div>
    </div>
    <div class="controls">
        <div class="control-group">
            <label>Route:</label>
            <input type="text" id="sourceId" placeholder="source_id">
            <select id="slotSelect">
                <option value="StudioPreview">StudioPreview</option>
                <option value="StudioLive">StudioLive</option>
                <option value="TVPreview">TVPreview</option>
                <option value="TVLive">TVLive</option>
            </select>
            <button id="routeBtn" onclick="routeSource()">Route</button>
        </div>
        <div class="divider"></div>
        <div class="control-group">
            <button class="promote" onclick="promote('Studio')">Promote Studio</button>
            <button class="promote" onclick="promote('TV')">Promote TV</button>
        </div>
        <span id="result"></span>
    </div>
    <main>
        <div id="events"></div>
    </main>
    <footer>
        <span id="count">0</span> events | WebSocket: /ws
    </footer>

    <script>
        const eventsDiv = document.getElementById('events');
        const statusEl = document.getElementById('status');
        const countEl = document.getElementById('count');
        let eventCount = 0;
        let ws = null;
        let reconnectTimer = null;

        function formatTime(ts) {
            try {
                const d = new Date(ts);
                return d.toLocaleTimeString('en-US', { hour12: false });
            } catch {
                return ts;
            }
        }

        function getScope(name) {
            const parts = name.split('.');
            return parts[0] || '';
        }

        function renderEvent(e) {
            const div = document.createElement('div');
            div.className = 'event level-' + e.level + ' scope-' + getScope(e.event);

            let idText = '';
            if (e.fields) {
                if (e.fields.source_id) idText = e.fields.source_id;
                else if (e.fields.slot) idText = e.fields.slot;
                else if (e.fields.side) idText = e.fields.side;
            }

            div.innerHTML =
                '<span class="ts">' + formatTime(e.ts) + '</span>' +
                '<span class="name">' + e.event + '</span>' +
                (idText ? '<span class="id">' + idText + '</span>' : '') +
                (e.msg ? '<span class="msg">' + e.msg + '</span>' : '');

            eventsDiv.appendChild(div);
            eventCount++;
            countEl.textContent = eventCount;

            eventsDiv.scrollTop = eventsDiv.scrollHeight;

            while (eventsDiv.children.length > 500) {
                eventsDiv.removeChild(eventsDiv.firstChild);
            }

            // Routing and promotion events change the table; refresh the grid
            const scope = getScope(e.event);
            if (scope === 'routing' || scope === 'promotion' || scope === 'source') {
                refreshSlots();
            }
        }

        function refreshSlots() {
            fetch('/assignments')
                .then(function(res) { return res.json(); })
                .then(function(data) {
                    const slots = ['StudioPreview', 'StudioLive', 'TVPreview', 'TVLive'];
                    slots.forEach(function(slot) {
                        const el = document.querySelector('#slot-' + slot + ' .source');
                        el.textContent = (data.assignments && data.assignments[slot]) || '-';
                    });
                    if (data.gates) {
                        document.getElementById('slot-StudioLive').classList.toggle('gated', !!data.gates.Studio);
                        document.getElementById('slot-TVLive').classList.toggle('gated', !!data.gates.TV);
                    }
                })
                .catch(function() {});
        }

        function setStatus(status) {
            statusEl.className = status;
            statusEl.textContent = status.charAt(0).toUpperCase() + status.slice(1);
        }

        function connect() {
            if (ws && ws.readyState === WebSocket.OPEN) return;

            setStatus('connecting');

            const protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
            ws = new WebSocket(protocol + '//' + location.host + '/ws');

            ws.onopen = function() {
                setStatus('connected');
                refreshSlots();
                if (reconnectTimer) {
                    clearTimeout(reconnectTimer);
                    reconnectTimer = null;
                }
            };

            ws.onmessage = function(msg) {
                try {
                    const e = JSON.parse(msg.data);
                    renderEvent(e);
                } catch (err) {
                    console.error('Failed to parse event:', err);
                }
            };

            ws.onclose = function() {
                setStatus('disconnected');
                scheduleReconnect();
            };

            ws.onerror = function(err) {
                console.error('WebSocket error:', err);
                ws.close();
            };
        }

        function scheduleReconnect() {
            if (reconnectTimer) return;
            reconnectTimer = setTimeout(function() {
                reconnectTimer = null;
                connect();
            }, 3000);
        }

        connect();

        const resultEl = document.getElementById('result');

        function showResult(success, message) {
            resultEl.className = success ? 'success' : 'error';
            resultEl.textContent = message;
            setTimeout(function() {
                resultEl.className = '';
                resultEl.textContent = '';
            }, 5000);
        }

        function routeSource() {
            const sourceId = document.getElementById('sourceId').value.trim();
            const slot = document.getElementById('slotSelect').value;
            if (!sourceId) {
                showResult(false, 'Enter a source_id');
                return;
            }

            fetch('/operator/route', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ source_id: sourceId, slot: slot })
            })
            .then(function(res) { return res.json(); })
            .then(function(data) {
                if (data.ok) {
                    showResult(true, sourceId + ' -> ' + slot);
                } else {
                    showResult(false, data.error || 'Route failed');
                }
            })
            .catch(function() {
                showResult(false, 'Network error');
            });
        }

        function promote(side) {
            fetch('/operator/promote', {
                method: 'POST',
                headers: { 'Content-Type': 'application/json' },
                body: JSON.stringify({ side: side })
            })
            .then(function(res) { return res.json(); })
            .then(function(data) {
                if (data.ok) {
                    showResult(true, 'Promote ' + side + ' requested');
                } else {
                    showResult(false, data.error || 'Promote failed');
                }
            })
            .catch(function() {
                showResult(false, 'Network error');
            });
        }

        document.getElementById('sourceId').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') routeSource();
        });
    </script>
</body>
</html>`

// uiHandler serves the operator routing page.
func (s *Server) uiHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(operatorUIHTML))
}
