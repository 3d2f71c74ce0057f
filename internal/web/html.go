package web

// Live market dashboard: quote grid plus open positions, fed by the SSE
// snapshot stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>brokersim</title>
  <style>
    body { margin:0; padding:2rem; background:#0f172a; color:#e2e8f0; font-family:'Space Mono','JetBrains Mono',monospace; }
    h1 { font-size:1.2rem; letter-spacing:.1em; }
    table { width:100%; border-collapse:collapse; margin-bottom:2rem; }
    th, td { text-align:left; padding:.4rem .8rem; border-bottom:1px solid #1e293b; font-size:.85rem; }
    th { color:#64748b; text-transform:uppercase; font-size:.7rem; }
    .up { color:#4ade80; }
    .down { color:#f87171; }
    .muted { color:#64748b; }
  </style>
</head>
<body>
  <h1>brokersim — live market</h1>
  <table>
    <thead>
      <tr><th>Symbol</th><th>Price</th><th>Change</th></tr>
    </thead>
    <tbody id="quotes"></tbody>
  </table>
  <h1>open positions</h1>
  <table>
    <thead>
      <tr><th>Symbol</th><th>Side</th><th>Qty</th><th>Entry</th><th>Lev</th><th>Unrealized P&amp;L</th></tr>
    </thead>
    <tbody id="positions"></tbody>
  </table>
  <script>
    const quotesEl = document.getElementById('quotes');
    const positionsEl = document.getElementById('positions');
    const src = new EventSource('/stream');
    src.addEventListener('snapshot', (e) => {
      const snap = JSON.parse(e.data);
      const symbols = Object.keys(snap.quotes).sort();
      quotesEl.innerHTML = symbols.map((s) => {
        const q = snap.quotes[s];
        const change = parseFloat(q.change_percent);
        const cls = change >= 0 ? 'up' : 'down';
        const sign = change >= 0 ? '+' : '';
        return '<tr><td>' + s + '</td><td>' + q.price + '</td>' +
               '<td class="' + cls + '">' + sign + change.toFixed(2) + '%</td></tr>';
      }).join('');
      const positions = snap.positions || [];
      if (positions.length === 0) {
        positionsEl.innerHTML = '<tr><td colspan="6" class="muted">no open positions</td></tr>';
        return;
      }
      positionsEl.innerHTML = positions.map((v) => {
        const p = v.position;
        const pnl = parseFloat(v.unrealized_pnl);
        const cls = pnl >= 0 ? 'up' : 'down';
        return '<tr><td>' + p.symbol + '</td><td>' + p.side + '</td><td>' + p.quantity + '</td>' +
               '<td>' + p.entry_price + '</td><td>' + p.leverage + 'x</td>' +
               '<td class="' + cls + '">' + pnl.toFixed(2) + '</td></tr>';
      }).join('');
    });
  </script>
</body>
</html>
`
