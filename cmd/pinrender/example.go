// example.go — Sample files written by `pinrender init`.
package main

const exampleTemplateJSON = `{
  "name": "Sample Pin",
  "canvas": { "width": 1000, "height": 1500, "backgroundColor": "#ffffff" },
  "elements": [
    {
      "type": "image",
      "id": "hero",
      "x": 0, "y": 0, "width": 1000, "height": 1000,
      "imageUrl": "{{image_url}}",
      "fitMode": "cover",
      "zIndex": 0
    },
    {
      "type": "shape",
      "id": "band",
      "x": 0, "y": 1000, "width": 1000, "height": 500,
      "shapeType": "rect",
      "fill": "#1a1a2e",
      "zIndex": 1
    },
    {
      "type": "text",
      "id": "title",
      "x": 60, "y": 1060, "width": 880, "height": 280,
      "text": "{{title}}",
      "fontSize": 72,
      "fill": "#ffffff",
      "align": "center",
      "autoFit": true,
      "minFontSize": 24,
      "zIndex": 2
    },
    {
      "type": "text",
      "id": "cta",
      "x": 60, "y": 1360, "width": 880, "height": 80,
      "text": "{{cta}}",
      "fontSize": 36,
      "fill": "#e5e5e5",
      "align": "center",
      "textTransform": "uppercase",
      "zIndex": 3
    }
  ]
}
`

const exampleCSV = `title,cta,image_url
10 Cozy Reading Nooks,read more,https://example.com/nook.jpg
Weeknight Pasta Ideas,get the recipes,https://example.com/pasta.jpg
Small Balcony Gardens,start growing,https://example.com/garden.jpg
`
