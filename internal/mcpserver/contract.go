package mcpserver

// CardFormatContract describes the canonical JSON card format that LLM
// consumers should follow when creating contacts.
const CardFormatContract = `# NexusMind Card Format Contract

Every contact created through the MCP tools MUST be a JSON object in this
shape.

## Structure

` + "```" + `json
{
  "name": "Grace Hopper",            // REQUIRED - display name
  "tags": ["colleagues"],            // OPTIONAL - first tag is the primary category
  "phone": "+1-555-0100",            // OPTIONAL
  "email": "grace@example.com",      // OPTIONAL
  "company": "Navy",                 // OPTIONAL
  "title": "Rear Admiral",           // OPTIONAL - job title
  "address": "Arlington, VA",        // OPTIONAL
  "website": "https://example.com",  // OPTIONAL
  "bio": "Compiler pioneer.",        // OPTIONAL
  "birthday": "1906-12-09T00:00:00.000Z",  // OPTIONAL - see date rule
  "importance": 80,                  // OPTIONAL - integer 0-100
  "memories": [                      // OPTIONAL
    {"content": "Met at a conference", "date": "2024-06-01T18:30:00.000Z", "location": "Berlin"}
  ],
  "events": [                        // OPTIONAL
    {"title": "Award ceremony", "type": "celebration", "date": "2025-03-01T19:00:00.000Z"}
  ],
  "links": [                         // OPTIONAL
    {"label": "Wikipedia", "url": "https://en.wikipedia.org/wiki/Grace_Hopper"}
  ]
}
` + "```" + `

## Rules

1. **name is required.** Everything else is optional.
2. **Dates are strings** in exactly this layout: ` + "`" + `YYYY-MM-DDTHH:MM:SS.mmmZ` + "`" + `
   (UTC, millisecond precision, trailing Z). Any other date shape is rejected.
3. **Do not set id or lastUpdated.** Both are assigned server-side.
4. **importance** is an integer from 0 to 100; omit it when unknown.
5. **tags** are lowercase single words where possible (e.g. ` + "`" + `friends` + "`" + `,
   ` + "`" + `colleagues` + "`" + `, ` + "`" + `family` + "`" + `).
6. Unknown fields are ignored; stick to the fields above.
`
