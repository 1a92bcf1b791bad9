package mode

// Fixed prompts sent for each mode when the caller does not supply one.
const (
	modelPrompt = "生成图中人物的单人棚拍定妆模特照。要求保持人物外貌、面部细节和特征、身材体型、肤色和妆容不变。去除帽子、眼镜等配饰。人物身穿基础款白色无肩带修身瑜伽上衣短裤，脚穿黑色运动鞋。人物使用自然的模特姿势。摄影棚打光效果，画面中间高亮，灰白色背景，高级质感"

	tryOnPromptTemplate = "Let the girl in Figure 1 wear the clothes in Figure 2, and put on {{shoe_clause}}. Keep the body and head features of the character in Figure 1 unchanged. The clothes in Figure 2 should be customized according to the body shape of the girl in Figure 1. Take a full-body photo on a gray background."

	posturePrompt = "Change the standing posture of the character in the picture."

	postureBackgroundPrompt = "Change the standing posture of the character in the picture. \n" +
		"Slightly change the background image, keep its tone and style, and adjust the perspective, content elements, details, etc."

	backgroundPrompt = "Extract the background from the image, resize it to the size of the standing person, remove the person from the image, and remove the watermark"

	fusionPrompt = "Leadership: Naturally and authentically integrate the model character into the specified scene. While maintaining the character's core identity, clothing, and facial features, allow for subtle adjustments to the model's posture to enhance realism and interaction with the environment.\n" +
		"Pose Adaptation: The character's pose may be slightly modified to better fit the scene. This could include minor shifts in weight, a slight turn of the head, or small adjustments in arm or leg positions to make the interaction with the environment (e.g., leaning against a wall, standing on uneven ground) appear more natural. The overall pose should remain similar to the original, avoiding drastic changes.\n" +
		"Scale and Position: Ensure that the character stands at a true scale in the scene, with a moderate size, as if naturally existing in the environment. The character should occupy a reasonable foreground or mid-ground position in the frame, avoiding being too small or too large, and forming a harmonious visual balance with the background.\n" +
		"Light and Shadow Integration: Based on the specified scene's light source direction, intensity, and color, reset the character's lighting and shadows to closely match the environmental lighting conditions. The transition between the character and the background should be seamless and natural, with smooth edge integration to avoid any cutting artifacts.\n" +
		"Details and Style: Create a photographic level of realism, with high resolution and sharp clarity. The overall image should present a natural, professional photographic effect.\n" +
		"Environment Integration: The scene should be rendered realistically according to the provided background. All lighting on the character—be it natural sunlight, outdoor ambient light, or indoor artificial light—must be determined by the scene's context. Maintain an eye-level shot for a natural perspective and create a fashionable atmosphere."
)

// Built-in prompts offered by the create mode.
const (
	figurePresetPrompt = "create a 1/7 scale commercialized figure of the subject in the photo, in a realistic style and environment.Place the figure on a computer desk, using a circular transparent acrylic base without any text. On the computer screen, display the Z Brush modeling process of the figure.Next to the computer screen, place a BANDAI-style toy packaging box printed with the original artwork.The box has a transparent window through which you can see the objects inside. A hand enters the frame from the right side, about to pick up the figure."

	sweaterPresetPrompt = `First, mentally conceptualize a material: Imagine a large, seamless, continuous piece of jacquard knit fabric. This fabric is already woven with the all-over Christmas pattern seen in the second image.

**Now, using that virtual material, generate a professional 3D product shot**:
1.  **Cutting and Sewing**: **Separate pieces** - a front panel and two sleeves - are cut from the single large piece of patterned fabric described above. These three separate pieces are then sewn together to construct the sweater. The overall silhouette and texture should reference the first image.
2.  **Pattern at Seams**: Because the front panel and sleeves are cut and sewn as separate pieces, **the pattern must naturally break at the seams** where they are joined.
3.  **Pattern and Texture at Edges**: At the neck opening, cuffs, and hem, **the fabric's knit structure simply tightens into a fine, vertical ribbed texture**. However, as these areas are extensions of the same fabric, **the pattern itself must be continuous** into these ribbed sections.
4.  **Final Result Check**: The final image **must not contain any solid-color trims or bands**.
5.  **Inner Collar Color**: The inner-facing side of the neck opening needs to be a clean, **solid off-white color**, with absolutely no pattern.
6.  Solid white background.`
)
