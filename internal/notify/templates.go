package notify

// Email bodies are rendered with Liquid so that non-engineers can adjust
// the report markup without touching Go code.

const runReportTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>ROAS Automation Run Report</h2>
  <p>
    Run <code>{{ run_id }}</code> finished at {{ end_time }} ({{ duration }}).
    {% if success %}<strong style="color: #2e7d32;">SUCCESS</strong>{% else %}<strong style="color: #c62828;">COMPLETED WITH ERRORS</strong>{% endif %}
  </p>

  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr><td>Campaigns processed</td><td align="right">{{ total }}</td></tr>
    <tr><td>Paused</td><td align="right">{{ paused }}</td></tr>
    <tr><td>Reactivated</td><td align="right">{{ reactivated }}</td></tr>
    <tr><td>Low ROAS campaigns</td><td align="right">{{ low_roas }}</td></tr>
    <tr><td>Zero ROAS high spend</td><td align="right">{{ zero_roas_high_spend }}</td></tr>
  </table>

  {% if changed_count > 0 %}
  <h3>Changed campaigns</h3>
  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr style="background: #eee;">
      <th>Account</th><th>Campaign</th><th>Change</th><th>ROAS</th><th>Cost</th><th>Reason</th>
    </tr>
    {% for c in changed %}
    <tr{% if c.urgent %} style="background: #ffebee;"{% endif %}>
      <td>{{ c.account }}</td>
      <td>{{ c.campaign }}</td>
      <td>{{ c.old_status }} &rarr; {{ c.new_status }}</td>
      <td align="right">{{ c.roas }}</td>
      <td align="right">${{ c.cost }}</td>
      <td>{{ c.reason }}</td>
    </tr>
    {% endfor %}
  </table>
  {% else %}
  <p>No campaigns were changed.</p>
  {% endif %}

  {% if preserved_count > 0 %}
  <h3>Preserved campaigns</h3>
  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr style="background: #eee;"><th>Account</th><th>Campaign</th><th>Status</th><th>ROAS</th><th>Cost</th></tr>
    {% for p in preserved %}
    <tr>
      <td>{{ p.account }}</td>
      <td>{{ p.campaign }}</td>
      <td>{{ p.status }}</td>
      <td align="right">{{ p.roas }}</td>
      <td align="right">${{ p.cost }}</td>
    </tr>
    {% endfor %}
  </table>
  {% endif %}

  {% if error_count > 0 %}
  <h3 style="color: #c62828;">Errors</h3>
  <ul>
    {% for e in errors %}<li>{{ e }}</li>{% endfor %}
  </ul>
  {% endif %}
</body>
</html>`

const scaleReportTemplate = `<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Campaigns Ready to Scale</h2>
  <p>{{ count }} active campaign(s) with strong returns, ordered best first.</p>

  <table cellpadding="6" cellspacing="0" border="1" style="border-collapse: collapse;">
    <tr style="background: #eee;"><th>Account</th><th>Campaign</th><th>ROAS</th><th>Cost</th><th>Revenue</th></tr>
    {% for c in candidates %}
    <tr>
      <td>{{ c.account }}</td>
      <td>{{ c.campaign }}</td>
      <td align="right">{{ c.roas }}</td>
      <td align="right">${{ c.cost }}</td>
      <td align="right">${{ c.revenue }}</td>
    </tr>
    {% endfor %}
  </table>
</body>
</html>`
