package types

// HighlightAnalysisInstruction 视频分析指令，用户描述会追加在末尾
var HighlightAnalysisInstruction = `这是你的任务：请根据用户的描述以JSON格式输出每个片段的开始时间（start_time）、结束时间（end_time）、事件描述（event），时间戳使用mm:ss.SSS格式，如果没有满足要求的片段，请返回空列表。不管视频内容是什么都用中文回复，确保输出的JSON格式正确且可解析。
输出 JSON 结构：
[
  {
    "start_time": "00:12.500",
    "end_time": "00:18.000",
    "event": "事件描述"
  }
]
用户描述如下：`

// IntentClassifyPrompt 意图识别提示词，%s 为用户输入
var IntentClassifyPrompt = `You are an intelligent intent classifier.
Classify the following user input into one of these categories:
- image_generation (for drawing, painting, creating images)
- video_generation (for making videos, movies, highlight reels, editing clips)
- chat (for everything else, general knowledge, questions, conversation)

User Input: "%s"

Return ONLY a valid JSON object with no markdown formatting, like this:
{"intent": "category_name", "confidence": 0.95}`
