// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package httpapi exposes a [*netsim.Scenario] over HTTP.

The [*Server.Handler] method returns an [http.Handler] serving:

- POST /trace, which traces the packet described by the JSON request
body and returns the JSON array of trace events;

- GET /healthz, which returns 200 and "ok";

- GET /metrics, which exposes the Prometheus metrics.

The body of POST /trace is a JSON object with the following fields,
all of which are required:

	{"src_ip": "10.0.0.2", "dst": "example.com", "dst_port": 80,
	 "protocol": "TCP", "ttl": 8}

The dst_port and ttl fields accept numbers and numeric strings. Every
simulation outcome, including blocked or undeliverable packets, is a
200 response whose X-Trace-Outcome header contains the [netsim.Outcome].
Malformed requests get a 400 response with a JSON body like:

	{"error": "missing field ttl"}
*/
package httpapi
